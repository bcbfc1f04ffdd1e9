// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package store 提供按文档指纹寻址的标记（Marker）缓存。

# 概述

缓存主键为 (SHA-256(文档序列化内容), 动作名)，另有可选的 stable id 二级索引。
二级索引在首次指纹命中时惰性回填，主条目变更时不会自动失效。

# 后端

  - memory：进程内 map + 按 key 加锁
  - file：memory 之上每次写入后原子落盘 JSON 快照
  - redis：每个指纹一个 hash，guarded remove 使用 WATCH/MULTI
  - sql：gorm（sqlite / postgres / mysql），guarded remove 为条件 DELETE

# 生命周期

Manager 持有唯一的活动存储；Initialize 之前调用 Store() 返回
CONTEXT_UNINITIALIZED 错误，不存在隐式的默认存储。
*/
package store
