package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/truffle/browser"
	"github.com/BaSui01/truffle/detect"
	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/internal/metrics"
	"github.com/BaSui01/truffle/internal/telemetry"
	"github.com/BaSui01/truffle/marker"
	"github.com/BaSui01/truffle/store"
	"github.com/BaSui01/truffle/types"
)

// Source names the stage that produced a list.
type Source string

const (
	SourceCache      Source = "cache"
	SourceStructural Source = "structural"
	SourceInferred   Source = "inferred"
	// SourceCandidates means detection was inconclusive; see Candidates.
	SourceCandidates Source = "candidates"
)

// ListResult is the outcome of FindList.
type ListResult struct {
	// Items are the list items, in document order.
	Items []dom.Element
	// Marker selects the list wrapper. Nil for SourceCandidates.
	Marker marker.Marker
	Source Source
	// Candidates holds the uncached item groups of an inconclusive
	// structural detection.
	Candidates []detect.Group
	RunID      string
}

// sharedList is what concurrent FindList calls for one key share.
type sharedList struct {
	res   *ListResult
	owner *findOptions
}

// FindList locates the main repeated-item list on page. A cached marker is
// tried first; otherwise the structural chain runs, then the attribute
// inferrer over text hints. Conclusive results are cached under the list
// action.
func (l *Locator) FindList(ctx context.Context, page browser.Page, opts ...FindOption) (res *ListResult, err error) {
	o := &findOptions{mode: ModeAuto}
	for _, opt := range opts {
		opt(o)
	}
	if _, err := ParseMode(string(o.mode)); err != nil {
		return nil, err
	}

	ctx, span, logger := l.begin(ctx, "find_list",
		attribute.String("truffle.action", l.listAction),
		attribute.String("truffle.mode", string(o.mode)),
		attribute.Bool("truffle.force", o.force),
	)
	start := time.Now()
	defer func() {
		source, status := "none", "success"
		if res != nil {
			source = string(res.Source)
			span.SetAttributes(attribute.String("truffle.source", source), attribute.Int("truffle.items", len(res.Items)))
		}
		if err != nil {
			status = "error"
			if errors.Is(err, ErrListNotFound) {
				status = "not_found"
			}
		}
		l.metrics.RecordDetection(source, status, time.Since(start))
		telemetry.EndSpan(span, err)
	}()

	st, err := l.mgr.Store()
	if err != nil {
		return nil, err
	}
	markup, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	key := store.Key{Document: markup, Action: l.listAction, StableID: o.stableID}

	ch := l.group.DoChan(flightKey(key, o), func() (any, error) {
		r, err := l.detectList(ctx, logger, st, page, key, markup, o)
		return &sharedList{res: r, owner: o}, err
	})
	var flight singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case flight = <-ch:
	}
	shared := flight.Val.(*sharedList)
	if flight.Err != nil {
		// The joined detection ran under another caller's context; a
		// cancellation there says nothing about ours.
		if shared.owner != o && isContextError(flight.Err) && ctx.Err() == nil {
			logger.Debug("joined detection was cancelled, detecting again", zap.Error(flight.Err))
			r, err := l.detectList(ctx, logger, st, page, key, markup, o)
			if err != nil {
				return nil, err
			}
			r.RunID = runID(ctx)
			return r, nil
		}
		return nil, flight.Err
	}
	if shared.owner == o {
		shared.res.RunID = runID(ctx)
		return shared.res, nil
	}
	// Another call did the work on its own page; rebind to ours.
	logger.Debug("joined in-flight detection", zap.String("source", string(shared.res.Source)))
	return l.rebind(ctx, page, shared.res)
}

func (l *Locator) rebind(ctx context.Context, page browser.Page, res *ListResult) (*ListResult, error) {
	out := &ListResult{Marker: res.Marker, Source: res.Source, RunID: runID(ctx)}
	if res.Marker == nil {
		groups, err := l.chain.Detect(ctx, page)
		if err != nil {
			return nil, err
		}
		out.Candidates = groups
		return out, nil
	}
	items, err := l.Resolve(ctx, page, res.Marker)
	if err != nil {
		return nil, err
	}
	out.Items = items
	return out, nil
}

func (l *Locator) detectList(ctx context.Context, logger *zap.Logger, st store.Store, page browser.Page, key store.Key, markup string, o *findOptions) (*ListResult, error) {
	if !o.force {
		if res := l.fromCache(ctx, logger, st, page, key); res != nil {
			return res, nil
		}
	} else {
		l.metrics.RecordCacheLookup(l.listAction, metrics.CacheSkipped)
	}

	var groups []detect.Group
	if o.mode != ModeInferred {
		var err error
		groups, err = l.chain.Detect(ctx, page)
		if err != nil {
			return nil, err
		}
		c, ok, err := detect.Conclude(ctx, groups)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("structural conclusion failed", zap.Error(err))
		}
		if ok {
			l.save(ctx, logger, st, key, c.Marker)
			return &ListResult{Items: c.Items, Marker: c.Marker, Source: SourceStructural}, nil
		}
		logger.Debug("structural detection inconclusive", zap.Int("groups", len(groups)))
	}

	if o.mode != ModeStructural {
		res, err := l.infer(ctx, logger, st, page, key, markup, o.hints)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	if len(groups) > 0 {
		return &ListResult{Source: SourceCandidates, Candidates: groups}, nil
	}
	return nil, types.NewError(types.ErrListNotFound, "no list found on page")
}

// fromCache returns the cached list, or nil to continue detection. A
// marker that no longer resolves is evicted.
func (l *Locator) fromCache(ctx context.Context, logger *zap.Logger, st store.Store, page browser.Page, key store.Key) *ListResult {
	m, err := st.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		l.metrics.RecordCacheLookup(l.listAction, metrics.CacheMiss)
		return nil
	case types.IsCode(err, types.ErrUnknownMarkerType):
		logger.Warn("cached marker has unknown type, ignoring", zap.Error(err))
		l.metrics.RecordCacheLookup(l.listAction, metrics.CacheMiss)
		return nil
	default:
		logger.Warn("marker store lookup failed", zap.Error(err))
		l.metrics.RecordCacheLookup(l.listAction, metrics.CacheError)
		return nil
	}

	items, err := l.Resolve(ctx, page, m)
	if err == nil && len(items) > 0 {
		l.metrics.RecordCacheLookup(l.listAction, metrics.CacheHit)
		return &ListResult{Items: items, Marker: m, Source: SourceCache}
	}

	l.metrics.RecordCacheLookup(l.listAction, metrics.CacheStale)
	removed, rerr := st.Remove(ctx, key, m)
	logger.Info("evicted stale marker",
		zap.String("marker", describe(m)),
		zap.Bool("removed", removed),
		zap.NamedError("resolve_error", err),
		zap.NamedError("remove_error", rerr),
	)
	return nil
}

func (l *Locator) infer(ctx context.Context, logger *zap.Logger, st store.Store, page browser.Page, key store.Key, markup string, hints []string) (*ListResult, error) {
	if len(hints) == 0 && l.hints != nil {
		shot, err := page.Screenshot(ctx)
		if err == nil {
			hints, err = l.hints.Hints(ctx, shot)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("hint source failed", zap.Error(err))
			return nil, nil
		}
	}
	if len(hints) == 0 {
		return nil, nil
	}

	doc, err := dom.Parse(markup)
	if err != nil {
		logger.Warn("page markup unparsable", zap.Error(err))
		return nil, nil
	}
	m, ok := l.inferrer.Infer(doc, hints)
	if !ok {
		logger.Debug("no attribute inferred", zap.Strings("hints", hints))
		return nil, nil
	}
	items, err := l.Resolve(ctx, page, m)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("inferred marker did not resolve", zap.String("marker", describe(m)), zap.Error(err))
		return nil, nil
	}
	if len(items) == 0 {
		logger.Debug("inferred marker matched no items", zap.String("marker", describe(m)))
		return nil, nil
	}
	l.save(ctx, logger, st, key, m)
	return &ListResult{Items: items, Marker: m, Source: SourceInferred}, nil
}

func (l *Locator) save(ctx context.Context, logger *zap.Logger, st store.Store, key store.Key, m marker.Marker) {
	if err := st.Put(ctx, key, m); err != nil {
		logger.Warn("failed to cache marker", zap.String("marker", describe(m)), zap.Error(err))
		return
	}
	logger.Debug("marker cached", zap.String("marker", describe(m)), zap.String("action", key.Action))
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func flightKey(key store.Key, o *findOptions) string {
	return strings.Join([]string{
		store.Fingerprint(key.Document),
		key.Action,
		key.StableID,
		string(o.mode),
		fmt.Sprint(o.force),
		strings.Join(o.hints, "\x1f"),
	}, "\x1e")
}

func describe(m marker.Marker) string {
	sel, err := m.RenderSelector()
	if err != nil {
		return string(m.Type())
	}
	return sel
}
