// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供运维 HTTP 服务器：/metrics 暴露 Prometheus 指标，
/healthz 检查标记存储是否可用。

Manager 非阻塞启动、优雅关闭，异步错误经 Errors() 传出。
*/
package server
