// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 SQL marker 存储的表结构（truffle_markers 与
truffle_stable_ids），基于 golang-migrate 实现，支持 PostgreSQL、
MySQL 与 SQLite。

迁移文件按方言内嵌于 migrations/<dialect>/ 目录。New 从
database.Config 推导方言与连接串；Up/Down/Steps/Version/Status
对应 CLI 的 migrate 子命令，WriteStatus/WriteVersion 负责终端输出。

SQLStore 也可通过 gorm AutoMigrate 建表；生产环境推荐使用本包。
*/
package migration
