// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 journal 将 Agent 产生的每个信封持久化到关系数据库，便于审计与排障。

# 核心类型

  - Record：envelope_records 表的 GORM 模型，保存请求 ID、策略、工具、
    响应类型、错误码、耗时以及完整信封 JSON。
  - Store：基于 database.PoolManager 的存储，实现 agent.Observer，
    可直接挂到 Agent 上；写入失败只记录日志，不影响已生成的信封。
  - Filter：Recent 的查询条件。

# 主要能力

  - Append / ObserveEnvelope：写入，遇到死锁等可重试错误时自动重试。
  - Recent / Get / CountByType：按 agent、类型、错误码与时间查询。
  - Prune：删除早于给定时间的记录。
*/
package journal
