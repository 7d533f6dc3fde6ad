// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的 JSON 缓存，供天气工具缓存模拟查询结果。

# 概述

本包封装 go-redis 客户端。Manager 负责连接生命周期管理，包括初始化、
后台健康检查与优雅关闭；所有键统一加上 KeyPrefix 前缀。

# 核心类型

  - Manager：缓存管理器，提供 Get/Set/Delete/Ping 与 GetJSON/SetJSON，
    满足 tools.Cache 接口。
  - Config：地址、密码、键前缀、默认 TTL、连接池与健康检查间隔。
  - Stats：本进程视角的命中/未命中计数与命中率。

# 错误语义

  - ErrCacheMiss / IsCacheMiss：键不存在或已过期
  - ErrClosed：Close 之后的任何操作
*/
package cache
