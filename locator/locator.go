package locator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/detect"
	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/internal/ctxkeys"
	"github.com/BaSui01/truffle/internal/metrics"
	"github.com/BaSui01/truffle/marker"
	"github.com/BaSui01/truffle/oracle"
	"github.com/BaSui01/truffle/search"
	"github.com/BaSui01/truffle/store"
	"github.com/BaSui01/truffle/types"
)

const tracerName = "github.com/BaSui01/truffle/locator"

var (
	// ErrListNotFound is returned when no stage found a list.
	ErrListNotFound = types.Sentinel(types.ErrListNotFound)
	// ErrNoOracle is returned by FindByPrompt without an oracle.
	ErrNoOracle = errors.New("no oracle configured")
)

// Locator finds lists and prompt-described elements on pages and caches
// list markers in the manager's store.
type Locator struct {
	mgr *store.Manager

	oracle      oracle.Oracle
	hints       detect.HintSource
	searchCfg   search.Config
	detectorCfg detect.DetectorConfig
	listAction  string
	idAttr      string

	chain    *detect.Chain
	inferrer *detect.Inferrer
	searcher *search.Searcher

	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
	group   singleflight.Group
}

// New creates a locator over mgr. The manager may still be uninitialized;
// FindList then fails with CONTEXT_UNINITIALIZED.
func New(mgr *store.Manager, opts ...Option) (*Locator, error) {
	if mgr == nil {
		return nil, errors.New("locator: store manager is required")
	}
	l := &Locator{
		mgr:         mgr,
		searchCfg:   search.DefaultConfig(),
		detectorCfg: detect.DefaultDetectorConfig(),
		listAction:  DefaultListAction,
		idAttr:      axtree.DefaultIDAttribute,
		tracer:      otel.Tracer(tracerName),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("component", "locator"))

	l.chain = detect.NewStructuralChain(l.detectorCfg, l.logger)
	l.inferrer = detect.NewInferrer(l.detectorCfg, l.logger)
	if l.oracle != nil {
		l.searcher = search.NewSearcher(l.instrument(l.oracle), l.searchCfg, l.logger)
	}
	return l, nil
}

// Manager returns the store manager.
func (l *Locator) Manager() *store.Manager { return l.mgr }

// ListAction returns the cache action used by FindList.
func (l *Locator) ListAction() string { return l.listAction }

// Resolve runs m against q and returns the direct children of every match,
// in document order. An empty result means m no longer fits the document.
func (l *Locator) Resolve(ctx context.Context, q dom.Querier, m marker.Marker) ([]dom.Element, error) {
	wrappers, err := dom.Resolve(ctx, q, m)
	if err != nil {
		return nil, err
	}
	var items []dom.Element
	for _, w := range wrappers {
		children, err := w.Children(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, children...)
	}
	return items, nil
}

// begin stamps a run id on ctx and opens a span for op.
func (l *Locator) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, *zap.Logger) {
	runID := uuid.NewString()
	ctx = ctxkeys.WithRunID(ctx, runID)
	ctx = ctxkeys.WithOperation(ctx, op)

	attrs = append(attrs, attribute.String("truffle.run_id", runID))
	ctx, span := l.tracer.Start(ctx, "locator."+op, trace.WithAttributes(attrs...))

	fields := []zap.Field{zap.String("run_id", runID), zap.String("operation", op)}
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return ctx, span, l.logger.With(fields...)
}

// instrument wraps o with per-call metrics and spans.
func (l *Locator) instrument(o oracle.Oracle) oracle.Oracle {
	return oracle.Func(func(ctx context.Context, content, prompt string) (oracle.Verdict, error) {
		ctx, span := l.tracer.Start(ctx, "oracle.Judge",
			trace.WithAttributes(attribute.Int("truffle.content_len", len(content))))
		start := time.Now()
		v, err := o.Judge(ctx, content, prompt)

		label := string(v)
		if err != nil {
			label = "error"
			if errors.Is(err, oracle.ErrValidation) {
				label = "invalid"
			}
			span.RecordError(err)
		}
		span.SetAttributes(attribute.String("truffle.verdict", label))
		span.End()
		l.metrics.RecordOracleCall(label, time.Since(start))
		return v, err
	})
}
