// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库打开与连接池管理，支持
postgres、mysql 与纯 Go sqlite 三种驱动、健康检查与写入重试。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔。
  - PoolStats：友好格式的连接池统计信息。

# 主要能力

  - Open/Dialector：按驱动名构造方言并打开连接。
  - 健康检查：后台定时 PingContext 探活，Close 后退出。
  - WithRetry：死锁、序列化失败、连接中断、sqlite 锁等场景指数退避重试。
*/
package database
