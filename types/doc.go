// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 truffle 定位引擎的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。所有跨包共享的错误码均定义于此，
上层模块通过 errors.Is(err, types.Sentinel(code)) 判断错误类别。

# 错误码

  - CONTEXT_UNINITIALIZED：存储管理器尚未初始化即被访问
  - ALREADY_INITIALIZED：存储管理器重复初始化
  - UNKNOWN_MARKER_TYPE：缓存记录的 type 字段无法识别
  - INVALID_MATCH_MODE：Attribute 标记的匹配模式不受支持
  - BUDGET_EXCEEDED：提示词搜索超出 oracle 调用预算
  - ORACLE_VALIDATION：oracle 多次重试后仍返回非法响应
  - LIST_NOT_FOUND：所有列表检测策略均未得到结果
*/
package types
