// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 tools 提供内置的 weather、calculator 与 echo 工具，以及把它们接入
Agent 路由表的 Kit。

# 核心类型

  - Kit：工具集合及其 TagRoute / Pattern，Select 按 id 取子集并保持顺序。
  - WeatherOptions：模拟天气的随机种子、延迟与可选 Redis 缓存。
  - Cache：天气工具依赖的最小 JSON 缓存接口，由 internal/cache 实现。

# 模式优先级

自由文本按 weather、calculate、echo、arithmetic 的顺序匹配，首个命中者生效。
"calculate 2+2" 因此总是命中 calculate 而非 arithmetic；arithmetic 要求表达式
占满整条消息（可带 "what is" 之类的前缀），"call me at 555-1234" 会落到兜底。

# 检测值

命中时抽取的城市、表达式与文本以 detectedCity、detectedExpression、
detectedText 写入信封的执行上下文。
*/
package tools
