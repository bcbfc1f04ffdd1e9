// =============================================================================
// 📦 truffle 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/browser"
	"github.com/BaSui01/truffle/detect"
	"github.com/BaSui01/truffle/oracle"
	"github.com/BaSui01/truffle/search"
	"github.com/BaSui01/truffle/store"
)

// DefaultListAction 是列表检测写入缓存时使用的 action
const DefaultListAction = "list_detector"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Store:     store.DefaultStoreConfig(),
		Locator:   DefaultLocatorConfig(),
		Detector:  detect.DefaultDetectorConfig(),
		Search:    search.DefaultConfig(),
		Oracle:    DefaultOracleConfig(),
		Browser:   browser.DefaultBrowserConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultLocatorConfig 返回默认定位器配置
func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		ListAction:  DefaultListAction,
		IDAttribute: axtree.DefaultIDAttribute,
	}
}

// DefaultOracleConfig 返回默认判定配置，端点留空
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		Model: oracle.ModelConfig{
			EndpointPath: "/v1/chat/completions",
			Timeout:      60 * time.Second,
		},
		RateLimit: 0,
		Burst:     1,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "truffle",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "truffle",
		SampleRate:   0.1,
	}
}
