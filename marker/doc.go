// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package marker 定义元素重定位描述符（Marker）及其 JSON 记录格式。

# 变体

  - Simple   ：原始选择器（css / xpath）
  - Attribute：属性匹配规则（exact 渲染为 [k="v"]，contains 渲染为 [k~="v"]）

FromRecord(m.Record()) 对所有变体无损还原；未知 type 返回 UNKNOWN_MARKER_TYPE，
不支持的匹配模式在 RenderSelector 时返回 INVALID_MATCH_MODE。
*/
package marker
