// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，供 SQL 标记存储使用。

# 核心类型

  - Config：驱动（sqlite / postgres / mysql）与连接参数，DSN() 拼接连接串。
  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB(ctx)、Ping()、Close()。
  - PoolConfig：最大空闲连接数、最大打开连接数、生命周期与健康检查间隔。

# 主要能力

  - Open：按驱动打开数据库；sqlite 强制单连接，避免写锁冲突。
  - 健康检查：后台定时 PingContext 探活。
  - 事务管理：WithTransaction 单次执行，WithTransactionRetry 在死锁、
    序列化失败等场景下指数退避重试。
*/
package database
