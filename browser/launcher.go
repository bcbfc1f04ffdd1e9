package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Launcher owns one browser connection and opens pages on it.
type Launcher struct {
	cfg    BrowserConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	local   *launcher.Launcher
}

// NewLauncher creates a launcher; no browser is started until Launch.
func NewLauncher(cfg BrowserConfig, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, logger: logger.With(zap.String("component", "browser"))}
}

// Launch connects to cfg.ControlURL or starts a local Chromium.
func (l *Launcher) Launch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browser != nil {
		return nil
	}

	controlURL := l.cfg.ControlURL
	if controlURL == "" {
		lnch := launcher.New().Context(ctx).Headless(l.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if l.cfg.Bin != "" {
			lnch = lnch.Bin(l.cfg.Bin)
		}
		u, err := lnch.Launch()
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		l.local = lnch
		l.logger.Info("launched local browser", zap.String("control_url", u))
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.cleanupLocal()
		return fmt.Errorf("connect browser: %w", err)
	}
	// Pages outlive the launch context.
	l.browser = b.Context(context.Background())
	return nil
}

// NewTab opens a blank tab.
func (l *Launcher) NewTab(ctx context.Context) (*RodPage, error) {
	if err := l.Launch(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	b := l.browser
	l.mu.Unlock()

	var (
		page *rod.Page
		err  error
	)
	if l.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}

	if l.cfg.ViewportWidth > 0 && l.cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  l.cfg.ViewportWidth,
			Height: l.cfg.ViewportHeight,
		}); err != nil {
			l.logger.Debug("set viewport failed", zap.Error(err))
		}
	}
	rp := NewRodPage(page)
	rp.navTimeout = l.cfg.NavigationTimeout
	rp.logger = l.logger
	return rp, nil
}

// Open opens url in a new tab and waits for the load event.
func (l *Launcher) Open(ctx context.Context, url string) (*RodPage, error) {
	page, err := l.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	if err := page.Navigate(ctx, url); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

// Factory adapts the launcher to a PagePool factory.
func (l *Launcher) Factory() Factory {
	return func(ctx context.Context) (PooledPage, error) {
		return l.NewTab(ctx)
	}
}

// Close disconnects and stops a locally launched browser.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.browser != nil {
		err = l.browser.Close()
		l.browser = nil
	}
	l.cleanupLocal()
	return err
}

func (l *Launcher) cleanupLocal() {
	if l.local != nil {
		l.local.Cleanup()
		l.local = nil
	}
}
