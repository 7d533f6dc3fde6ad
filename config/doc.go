// Package config 提供 toolflow 的配置管理功能。
//
// 包含配置加载（默认值、YAML 文件、TOOLFLOW_ 环境变量三级覆盖）、
// 集中校验，以及用于热加载声明式 Agent 定义的文件监听器。
package config
