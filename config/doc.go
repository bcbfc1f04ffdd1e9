// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package config loads truffle's configuration: defaults, then an optional YAML
file, then TRUFFLE_* environment variables derived from the env struct tags.
*/
package config
