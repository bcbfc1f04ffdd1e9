// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 truffle 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 元素断言: Texts / AssertTexts，按文档顺序比较元素文本
  - 异步断言: AssertEventuallyTrue / WaitFor
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/mocks: ScriptedOracle（语义判定）、FakePage（基于离线文档的页面）、
    StaticHints / ScriptedReplies（提示与模型替身），均支持调用计数
  - testutil/fixtures: HTML 样例页面与无障碍树样例
*/
package testutil
