// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 toolflow 服务端程序入口。

# 概述

cmd/toolflow 装配配置、日志、工具目录、可选的 Redis 天气缓存与信封日志库，
构建 Agent 并以 HTTP 或命令行方式对外提供服务。

# 核心类型

  - Server：管理 HTTP 与 Metrics 双端口、定义文件热重载与优雅关闭
  - runtime：工具目录、缓存、日志库与观察者的装配结果
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 子命令

  - serve：启动服务（/v1/process、/v1/tools、/v1/agent、/v1/journal）
  - invoke：处理单个请求并打印信封 JSON
  - tools：列出当前 Agent 的工具
  - version、health

# 中间件链

Recovery、RequestID、OTelTracing、MetricsMiddleware、SecurityHeaders、
RequestLogger、CORS、JWTAuth 或 APIKeyAuth、RateLimiter（按主体或 IP）。
RequestID 写入 context 的请求 ID 会成为信封 executionContext.requestId。

# 热重载

agent.watch_definition 开启时，定义文件变更会重新构建 Agent 并原子替换；
构建失败则保留旧 Agent。
*/
package main
