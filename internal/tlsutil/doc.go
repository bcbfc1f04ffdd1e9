// Package tlsutil 提供集中式 TLS 客户端配置，
// 供模型 HTTP 客户端与 Redis 标记存储使用（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
