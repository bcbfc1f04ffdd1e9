// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供定位器的 Prometheus 指标采集能力。

# 核心类型

  - Collector：指标收集器，nil 值安全，未配置指标时不记录任何数据。

# 主要能力

  - 缓存指标：按 action/result 统计标记缓存查询（hit/miss/stale/error）。
  - 检测指标：按 source/status 统计列表检测次数与耗时。
  - Oracle 指标：按 verdict 统计判定次数与耗时。
  - 搜索指标：按 status 统计提示搜索次数、每次搜索消耗的 oracle 调用数与耗时。
*/
package metrics
