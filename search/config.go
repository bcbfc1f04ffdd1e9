package search

import "github.com/BaSui01/truffle/internal/retry"

const (
	DefaultTextThreshold  = 2000
	DefaultMaxOracleCalls = 50
)

// Config tunes one Searcher.
type Config struct {
	// TextThreshold is the longest text, in runes, sent to the oracle.
	TextThreshold int `yaml:"text_threshold" json:"text_threshold" env:"TEXT_THRESHOLD"`
	// MaxOracleCalls caps oracle invocations per search, retries included.
	MaxOracleCalls int64 `yaml:"max_oracle_calls" json:"max_oracle_calls" env:"MAX_ORACLE_CALLS"`
	// MaxConcurrency bounds in-flight oracle calls; 0 means unbounded.
	MaxConcurrency int          `yaml:"max_concurrency" json:"max_concurrency" env:"MAX_CONCURRENCY"`
	Retry          retry.Policy `yaml:"retry" json:"retry" env:"RETRY"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		TextThreshold:  DefaultTextThreshold,
		MaxOracleCalls: DefaultMaxOracleCalls,
		MaxConcurrency: 8,
		Retry:          retry.DefaultPolicy(),
	}
}

func (c Config) normalized() Config {
	if c.TextThreshold <= 0 {
		c.TextThreshold = DefaultTextThreshold
	}
	if c.MaxOracleCalls <= 0 {
		c.MaxOracleCalls = DefaultMaxOracleCalls
	}
	if c.MaxConcurrency < 0 {
		c.MaxConcurrency = 0
	}
	return c
}
