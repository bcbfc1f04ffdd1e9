// Package truffle wires a configured marker store, the oracle and the
// locator into one Engine.
//
// Usage:
//
//	import "github.com/BaSui01/truffle"
//
//	eng, err := truffle.New(truffle.WithConfig(cfg), truffle.WithLogger(logger))
//	defer eng.Close()
//	res, err := eng.FindList(ctx, page)
//
// Without a config the engine uses an in-memory store and no oracle.
package truffle

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/browser"
	"github.com/BaSui01/truffle/config"
	"github.com/BaSui01/truffle/detect"
	"github.com/BaSui01/truffle/internal/metrics"
	"github.com/BaSui01/truffle/locator"
	"github.com/BaSui01/truffle/oracle"
	"github.com/BaSui01/truffle/store"
)

// Option configures the engine created by New.
type Option func(*options)

type options struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      store.Store
	oracle     oracle.Oracle
	hints      detect.HintSource
	registerer prometheus.Registerer
}

// WithConfig sets the configuration. Defaults to config.DefaultConfig().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore uses s instead of building one from the store config.
// The engine closes it.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithOracle overrides the oracle built from the oracle config.
func WithOracle(or oracle.Oracle) Option {
	return func(o *options) { o.oracle = or }
}

// WithHintSource overrides the vision hint source built from the oracle
// config.
func WithHintSource(h detect.HintSource) Option {
	return func(o *options) { o.hints = h }
}

// WithRegisterer registers metrics on reg instead of the default registry.
// Metrics are only recorded when enabled in the config.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// Engine owns the store manager and the locator built on it.
type Engine struct {
	cfg     *config.Config
	mgr     *store.Manager
	locator *locator.Locator
	logger  *zap.Logger
}

// New builds an engine.
func New(opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.DefaultConfig()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	cfg, logger := o.cfg, o.logger

	st := o.store
	if st == nil {
		var err error
		if st, err = store.NewStore(cfg.Store, logger); err != nil {
			return nil, fmt.Errorf("create marker store: %w", err)
		}
	}
	mgr, err := store.NewManagerWith(st, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	lopts := []locator.Option{
		locator.WithLogger(logger),
		locator.WithListAction(cfg.Locator.ListAction),
		locator.WithIDAttribute(cfg.Locator.IDAttribute),
		locator.WithDetectorConfig(cfg.Detector),
		locator.WithSearchConfig(cfg.Search),
	}
	if cfg.Metrics.Enabled {
		reg := o.registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		lopts = append(lopts, locator.WithMetrics(metrics.NewCollectorWith(reg, cfg.Metrics.Namespace, logger)))
	}

	or, hints := o.oracle, o.hints
	if cfg.Oracle.Configured() && (or == nil || hints == nil) {
		judge, vision, err := BuildModels(cfg.Oracle, logger)
		if err != nil {
			_ = mgr.Close()
			return nil, err
		}
		if or == nil {
			or = judge
		}
		if hints == nil {
			hints = detect.NewVisionHints(vision, cfg.Detector.HintRetry, logger)
		}
	}
	if or != nil {
		lopts = append(lopts, locator.WithOracle(or))
	}
	if hints != nil {
		lopts = append(lopts, locator.WithHintSource(hints))
	}

	l, err := locator.New(mgr, lopts...)
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}
	logger.Info("truffle engine ready",
		zap.String("store", string(cfg.Store.Type)),
		zap.Bool("oracle", or != nil),
		zap.Bool("hints", hints != nil),
	)
	return &Engine{cfg: cfg, mgr: mgr, locator: l, logger: logger}, nil
}

// BuildModels builds the rate-limited judging oracle and the vision model
// from cfg. The vision model reuses the judge endpoint, with
// cfg.VisionModel as the model name when set.
func BuildModels(cfg config.OracleConfig, logger *zap.Logger) (oracle.Oracle, detect.VisionModel, error) {
	if !cfg.Configured() {
		return nil, nil, errors.New("oracle model is not configured")
	}
	judge, err := oracle.NewHTTPModel(cfg.Model, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create oracle model: %w", err)
	}
	vision := judge
	if cfg.VisionModel != "" && cfg.VisionModel != cfg.Model.Model {
		vcfg := cfg.Model
		vcfg.Model = cfg.VisionModel
		if vision, err = oracle.NewHTTPModel(vcfg, logger); err != nil {
			return nil, nil, fmt.Errorf("create vision model: %w", err)
		}
	}
	return oracle.WithRateLimit(oracle.NewChatOracle(judge, logger), cfg.RateLimit, cfg.Burst), vision, nil
}

// FindList delegates to the locator.
func (e *Engine) FindList(ctx context.Context, page browser.Page, opts ...locator.FindOption) (*locator.ListResult, error) {
	return e.locator.FindList(ctx, page, opts...)
}

// FindByPrompt delegates to the locator.
func (e *Engine) FindByPrompt(ctx context.Context, page browser.Page, prompt string) (*locator.PromptResult, error) {
	return e.locator.FindByPrompt(ctx, page, prompt)
}

// Locator returns the underlying locator.
func (e *Engine) Locator() *locator.Locator { return e.locator }

// Manager returns the store manager.
func (e *Engine) Manager() *store.Manager { return e.mgr }

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config { return e.cfg }

// Close closes the marker store.
func (e *Engine) Close() error {
	return e.mgr.Close()
}
