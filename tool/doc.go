// Copyright 2026 AgentFlow Authors
// Use of this source code is governed by the project license.

/*
Package tool 定义工具（Tool）与按 Agent 作用域持有的工具注册表（Registry）。

Tool 由 ID、描述、输入契约、输出契约与执行函数组成，构造后不可变，可并发调用。
Invoke 依次执行：输入校验 -> 执行 -> 输出校验；失败以 *ContractViolation
或 *ExecutionError 返回，执行函数中的 panic 会被恢复为 *ExecutionError。

Registry 以 ID 为键，重复注册返回 DUPLICATE_TOOL_ID，List 按注册顺序惰性迭代。
*/
package tool
