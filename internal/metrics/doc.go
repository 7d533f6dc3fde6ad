// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、Agent
请求处理、工具调用、缓存与信封日志存储。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，同时实现 agent.Observer，
    每次 Process 完成后按 strategy/type/code 计数。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - Agent 指标：请求总数、耗时、错误码计数、工具调用成功/失败计数。
  - 缓存指标：通过 RegisterCacheStats 在抓取时读取命中/未命中计数。
  - 日志存储指标：写入次数与耗时，按成功/失败分组。
*/
package metrics
