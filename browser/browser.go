package browser

import (
	"context"
	"time"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/dom"
)

// Page is a rendered document the locator can inspect.
type Page interface {
	dom.Querier
	// Content returns the serialized markup of the whole document.
	Content(ctx context.Context) (string, error)
	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// AccessibilityTree stamps idAttr on every element and returns the tree.
	AccessibilityTree(ctx context.Context, idAttr string) (*axtree.Node, error)
}

// BrowserConfig configures how pages are obtained.
type BrowserConfig struct {
	// ControlURL connects to a running browser; empty launches a local one.
	ControlURL        string        `yaml:"control_url" json:"control_url" env:"CONTROL_URL"`
	Bin               string        `yaml:"bin" json:"bin" env:"BIN"`
	Headless          bool          `yaml:"headless" json:"headless" env:"HEADLESS"`
	Stealth           bool          `yaml:"stealth" json:"stealth" env:"STEALTH"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout" env:"NAVIGATION_TIMEOUT"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height" env:"VIEWPORT_HEIGHT"`
	PoolSize          int           `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		PoolSize:          4,
	}
}
