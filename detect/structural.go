package detect

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/marker"
)

// Group is one candidate list: the items, and their wrapper when the
// strategy found one.
type Group struct {
	Pattern   string
	Container dom.Element
	Items     []dom.Element
}

// Strategy proposes candidate groups. An empty result means the strategy
// did not apply.
type Strategy func(ctx context.Context, q dom.Querier) ([]Group, error)

// WrapperStrategy matches each pattern and takes the direct children of every
// match as a group. Only the largest group is returned; on ties the earlier
// pattern and then the earlier container wins.
func WrapperStrategy(patterns []string, logger *zap.Logger) Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, q dom.Querier) ([]Group, error) {
		var best *Group
		for _, p := range patterns {
			containers, err := q.QueryAll(ctx, p, marker.CSS)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Debug("wrapper pattern skipped", zap.String("pattern", p), zap.Error(err))
				continue
			}
			for _, c := range containers {
				items, err := c.Children(ctx)
				if err != nil {
					logger.Debug("children lookup failed", zap.String("pattern", p), zap.Error(err))
					continue
				}
				if len(items) == 0 {
					continue
				}
				if best == nil || len(items) > len(best.Items) {
					best = &Group{Pattern: p, Container: c, Items: items}
				}
			}
		}
		if best == nil {
			return nil, nil
		}
		return []Group{*best}, nil
	}
}

// ItemStrategy returns one group per pattern that matched anything.
func ItemStrategy(patterns []string, logger *zap.Logger) Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, q dom.Querier) ([]Group, error) {
		var groups []Group
		for _, p := range patterns {
			items, err := q.QueryAll(ctx, p, marker.CSS)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Debug("item pattern skipped", zap.String("pattern", p), zap.Error(err))
				continue
			}
			if len(items) > 0 {
				groups = append(groups, Group{Pattern: p, Items: items})
			}
		}
		return groups, nil
	}
}

// Chain runs strategies in order and stops at the first non-empty result.
type Chain struct {
	Strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds a chain over strategies.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{Strategies: strategies, logger: logger.With(zap.String("component", "structural_detector"))}
}

// NewStructuralChain builds the wrapper then item chain from cfg.
func NewStructuralChain(cfg DetectorConfig, logger *zap.Logger) *Chain {
	wrappers, items := cfg.WrapperPatterns, cfg.ItemPatterns
	if len(wrappers) == 0 {
		wrappers = DefaultWrapperPatterns
	}
	if len(items) == 0 {
		items = DefaultItemPatterns
	}
	c := NewChain(logger)
	c.Strategies = []Strategy{WrapperStrategy(wrappers, c.logger), ItemStrategy(items, c.logger)}
	return c
}

// Detect returns the first non-empty strategy result, or nil when no
// strategy applies. Strategy failures are logged and skipped; only context
// cancellation is returned.
func (c *Chain) Detect(ctx context.Context, q dom.Querier) ([]Group, error) {
	for i, s := range c.Strategies {
		groups, err := s(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("strategy failed", zap.Int("strategy", i), zap.Error(err))
			continue
		}
		if len(groups) > 0 {
			c.logger.Debug("strategy matched", zap.Int("strategy", i), zap.Int("groups", len(groups)))
			return groups, nil
		}
	}
	return nil, nil
}

// Conclusion is a detection result that can be cached.
type Conclusion struct {
	Marker marker.Marker
	Items  []dom.Element
}

// Conclude decides whether groups identify exactly one list: a single group
// whose items share one parent. The marker selects that parent by path.
func Conclude(ctx context.Context, groups []Group) (*Conclusion, bool, error) {
	if len(groups) != 1 || len(groups[0].Items) == 0 {
		return nil, false, nil
	}
	g := groups[0]

	if g.Container != nil {
		path, err := g.Container.Path(ctx)
		if err != nil {
			return nil, false, err
		}
		return &Conclusion{Marker: marker.NewCSS(path), Items: g.Items}, true, nil
	}

	var parent string
	for i, item := range g.Items {
		path, err := item.Path(ctx)
		if err != nil {
			return nil, false, err
		}
		cut := strings.LastIndex(path, " > ")
		if cut < 0 {
			return nil, false, nil
		}
		if i == 0 {
			parent = path[:cut]
		} else if path[:cut] != parent {
			return nil, false, nil
		}
	}
	return &Conclusion{Marker: marker.NewCSS(parent), Items: g.Items}, true, nil
}
