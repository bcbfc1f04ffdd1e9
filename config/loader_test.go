// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/truffle/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "truffle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, store.StoreTypeMemory, cfg.Store.Type)
	assert.Equal(t, DefaultListAction, cfg.Locator.ListAction)
	assert.Equal(t, int64(50), cfg.Search.MaxOracleCalls)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
store:
  type: redis
  fingerprint: structural
  redis:
    host: cache.internal
    port: 6380
    key_prefix: "scrape:"
locator:
  list_action: product_list
detector:
  wrapper_patterns: ["ul.products", "ol"]
search:
  text_threshold: 1500
  max_oracle_calls: 20
  retry:
    max_retries: 3
    initial_delay: 250ms
oracle:
  model:
    base_url: http://localhost:11434
    model: judge
  rate_limit: 2
browser:
  headless: false
  navigation_timeout: 45s
log:
  level: debug
  format: json
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, store.StoreTypeRedis, cfg.Store.Type)
	assert.Equal(t, store.FingerprintStructural, cfg.Store.Fingerprint)
	assert.Equal(t, "cache.internal", cfg.Store.Redis.Host)
	assert.Equal(t, 6380, cfg.Store.Redis.Port)
	assert.Equal(t, "scrape:", cfg.Store.Redis.KeyPrefix)
	assert.Equal(t, 10, cfg.Store.Redis.PoolSize, "unset keys keep defaults")

	assert.Equal(t, "product_list", cfg.Locator.ListAction)
	assert.Equal(t, []string{"ul.products", "ol"}, cfg.Detector.WrapperPatterns)
	assert.Equal(t, 1500, cfg.Search.TextThreshold)
	assert.Equal(t, int64(20), cfg.Search.MaxOracleCalls)
	assert.Equal(t, 3, cfg.Search.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.Retry.InitialDelay)

	assert.True(t, cfg.Oracle.Configured())
	assert.Equal(t, 2.0, cfg.Oracle.RateLimit)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "store: [unterminated")
	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
store:
  type: file
search:
  text_threshold: 1500
`)
	t.Setenv("TRUFFLE_STORE_TYPE", "sql")
	t.Setenv("TRUFFLE_STORE_SQL_DB_DRIVER", "postgres")
	t.Setenv("TRUFFLE_SEARCH_TEXT_THRESHOLD", "900")
	t.Setenv("TRUFFLE_SEARCH_RETRY_INITIAL_DELAY", "2s")
	t.Setenv("TRUFFLE_DETECTOR_ITEM_PATTERNS", "li, article")
	t.Setenv("TRUFFLE_ORACLE_MODEL_API_KEY", "secret")
	t.Setenv("TRUFFLE_BROWSER_STEALTH", "true")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, store.StoreTypeSQL, cfg.Store.Type)
	assert.Equal(t, "postgres", cfg.Store.SQL.Database.Driver)
	assert.Equal(t, 900, cfg.Search.TextThreshold)
	assert.Equal(t, 2*time.Second, cfg.Search.Retry.InitialDelay)
	assert.Equal(t, []string{"li", "article"}, cfg.Detector.ItemPatterns)
	assert.Equal(t, "secret", cfg.Oracle.Model.APIKey)
	assert.True(t, cfg.Browser.Stealth)
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("SCRAPER_LOG_LEVEL", "warn")
	cfg, err := NewLoader().WithEnvPrefix("SCRAPER").Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("TRUFFLE_SEARCH_MAX_ORACLE_CALLS", "many")
	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUFFLE_SEARCH_MAX_ORACLE_CALLS")
}

func TestLoader_Validators(t *testing.T) {
	t.Setenv("TRUFFLE_STORE_TYPE", "etcd")
	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store type "etcd"`)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad fingerprint", mutate: func(c *Config) { c.Store.Fingerprint = "fuzzy" }, wantErr: "fingerprint"},
		{name: "empty action", mutate: func(c *Config) { c.Locator.ListAction = "" }, wantErr: "list_action"},
		{name: "zero budget", mutate: func(c *Config) { c.Search.MaxOracleCalls = 0 }, wantErr: "max_oracle_calls"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log level"},
		{name: "bad sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: "sample_rate"},
		{name: "negative rate", mutate: func(c *Config) { c.Oracle.RateLimit = -1 }, wantErr: "rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	path := writeConfig(t, "log:\n  level: loud\n")
	assert.Panics(t, func() { MustLoad(path) })
}
