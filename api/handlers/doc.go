// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 toolflow HTTP API 的请求处理器实现。

# 核心类型

  - AgentHandler：POST /v1/process、GET /v1/tools、GET /v1/agent
  - AgentHolder：可原子替换的 AgentSource，配合定义文件热重载
  - JournalHandler：GET /v1/journal、/v1/journal/{id}、/v1/journal/stats
  - HealthHandler：/health、/healthz、/ready、/version
  - Response / ErrorInfo：统一 JSON 响应结构
  - ResponseWriter：包装 http.ResponseWriter 以捕获状态码

# 约定

/v1/process 对成功与错误信封一律返回 200，信封的 type 字段即结果指示；
只有请求体无法解析时才返回 400（INVALID_REQUEST）。
*/
package handlers
