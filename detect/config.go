package detect

import "github.com/BaSui01/truffle/internal/retry"

// DetectorConfig configures the structural chain and the inferrer.
type DetectorConfig struct {
	WrapperPatterns  []string     `yaml:"wrapper_patterns" json:"wrapper_patterns" env:"WRAPPER_PATTERNS"`
	ItemPatterns     []string     `yaml:"item_patterns" json:"item_patterns" env:"ITEM_PATTERNS"`
	IgnoreAttributes []string     `yaml:"ignore_attributes" json:"ignore_attributes" env:"IGNORE_ATTRIBUTES"`
	HintRetry        retry.Policy `yaml:"hint_retry" json:"hint_retry" env:"HINT_RETRY"`
}

// DefaultWrapperPatterns are tried in order by the wrapper strategy.
var DefaultWrapperPatterns = []string{
	"ul",
	"ol",
	`[role="list"]`,
	".list",
	".list-container",
	`[class*="list"]`,
}

// DefaultItemPatterns are tried in order by the item strategy.
var DefaultItemPatterns = []string{
	"li",
	`[role="listitem"]`,
	".item",
	".list-item",
	`[class*="item"]`,
	"article",
}

// DefaultDetectorConfig returns the built-in patterns. The injected search
// id attribute is ignored by the inferrer since it changes on every load.
func DefaultDetectorConfig() DetectorConfig {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = 1
	return DetectorConfig{
		WrapperPatterns:  append([]string(nil), DefaultWrapperPatterns...),
		ItemPatterns:     append([]string(nil), DefaultItemPatterns...),
		IgnoreAttributes: []string{"data-truffle-id"},
		HintRetry:        policy,
	}
}
