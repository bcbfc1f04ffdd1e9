package locator

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/detect"
	"github.com/BaSui01/truffle/internal/metrics"
	"github.com/BaSui01/truffle/oracle"
	"github.com/BaSui01/truffle/search"
)

// DefaultListAction is the cache action used by FindList.
const DefaultListAction = "list_detector"

// Option configures a Locator.
type Option func(*Locator)

// WithOracle sets the oracle used by FindByPrompt.
func WithOracle(o oracle.Oracle) Option {
	return func(l *Locator) { l.oracle = o }
}

// WithHintSource sets where FindList gets text hints when the caller
// passes none.
func WithHintSource(h detect.HintSource) Option {
	return func(l *Locator) { l.hints = h }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records Prometheus metrics through c.
func WithMetrics(c *metrics.Collector) Option {
	return func(l *Locator) { l.metrics = c }
}

// WithTracer replaces the otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(l *Locator) {
		if t != nil {
			l.tracer = t
		}
	}
}

// WithSearchConfig tunes the prompt search.
func WithSearchConfig(cfg search.Config) Option {
	return func(l *Locator) { l.searchCfg = cfg }
}

// WithDetectorConfig tunes the structural detector and the inferrer.
func WithDetectorConfig(cfg detect.DetectorConfig) Option {
	return func(l *Locator) { l.detectorCfg = cfg }
}

// WithListAction sets the cache action FindList stores markers under.
func WithListAction(action string) Option {
	return func(l *Locator) {
		if action != "" {
			l.listAction = action
		}
	}
}

// WithIDAttribute sets the attribute stamped on elements for FindByPrompt.
func WithIDAttribute(attr string) Option {
	return func(l *Locator) {
		if attr != "" {
			l.idAttr = attr
		}
	}
}

// Mode restricts which detection stages FindList runs.
type Mode string

const (
	// ModeAuto tries structural detection, then inference.
	ModeAuto Mode = "auto"
	// ModeStructural never asks for hints.
	ModeStructural Mode = "structural"
	// ModeInferred skips structural detection.
	ModeInferred Mode = "inferred"
)

// ParseMode parses a mode name; empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeStructural, ModeInferred:
		return m, nil
	default:
		return "", fmt.Errorf("unknown detection mode %q", s)
	}
}

type findOptions struct {
	stableID string
	force    bool
	hints    []string
	mode     Mode
}

// FindOption configures one FindList call.
type FindOption func(*findOptions)

// WithStableID also indexes the marker under id.
func WithStableID(id string) FindOption {
	return func(o *findOptions) { o.stableID = id }
}

// WithForceDetect skips the cache read. The result is still stored.
func WithForceDetect() FindOption {
	return func(o *findOptions) { o.force = true }
}

// WithHints supplies the texts of a few list items for the inferrer.
func WithHints(hints ...string) FindOption {
	return func(o *findOptions) { o.hints = append(o.hints, hints...) }
}

// WithMode restricts the detection stages.
func WithMode(m Mode) FindOption {
	return func(o *findOptions) { o.mode = m }
}
