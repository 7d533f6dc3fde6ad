// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 toolflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 contract、tool、agent、
api 等上层模块提供统一的错误契约，避免循环依赖。

# 核心类型

  - ErrorCode：错误分类码（CONTRACT_VIOLATION、TOOL_EXECUTION_ERROR 等）
  - Error：结构化错误，含 Code、Message、HTTPStatus、ToolID 与 Cause
  - Coded：携带自身 ErrorCode 的错误接口

# 主要能力

  - GetErrorCode 沿 errors.As 链提取错误码，无码错误归类为 UNKNOWN_ERROR
  - HTTPStatusFor 将错误码映射为默认 HTTP 状态码
*/
package types
