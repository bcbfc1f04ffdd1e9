// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
truffle 是自适应元素定位器的命令行入口。

# 命令

	truffle list --url <url>              # 检测页面主列表
	truffle find --url <url> --prompt ... # 按描述查找元素
	truffle cache export|import|reset     # 标记缓存维护
	truffle migrate up|down|status|version
	truffle version

# 全局参数

--config 指定 YAML 配置文件，--log-level 覆盖日志级别。
环境变量使用 TRUFFLE_ 前缀覆盖配置，例如 TRUFFLE_STORE_TYPE=redis。
*/
package main
