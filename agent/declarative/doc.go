// Copyright 2026 AgentFlow Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 declarative 提供基于 YAML/JSON 的声明式 Agent 定义与加载能力。

用户可通过配置文件（而非 Go 代码）定义 Agent：名称、指令、版本、
模型引用与工具列表。工具 ID 通过 tools.Kit 目录解析，未知 ID 在
构造阶段即报错。

# 核心接口

  - AgentLoader：从文件或字节流加载 AgentDefinition，支持自动格式检测
  - AgentFactory：校验定义并构造 agent.Agent

# 典型用法

	loader := declarative.NewYAMLLoader()
	def, err := loader.LoadFile("agent.yaml")

	kit, _ := tools.Standard(tools.Options{})
	factory := declarative.NewAgentFactory(kit, logger)
	a, err := factory.Build(def)

# 定义示例

	name: Weather Assistant
	instructions: You are a helpful weather assistant.
	version: 1.2.0
	model:
	  provider: openai
	  model: gpt-4
	tools: [weather, calculator]
*/
package declarative
