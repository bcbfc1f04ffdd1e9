package locator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/internal/metrics"
	"github.com/BaSui01/truffle/marker"
	"github.com/BaSui01/truffle/store"
	"github.com/BaSui01/truffle/testutil"
	"github.com/BaSui01/truffle/testutil/fixtures"
	"github.com/BaSui01/truffle/testutil/mocks"
	"github.com/BaSui01/truffle/types"
)

func newStore(t *testing.T) (*store.Manager, store.Store) {
	t.Helper()
	st := store.NewMemoryStore(store.FingerprintRaw, nil)
	mgr, err := store.NewManagerWith(st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr, st
}

func newLocator(t *testing.T, mgr *store.Manager, opts ...Option) *Locator {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	l, err := New(mgr, opts...)
	require.NoError(t, err)
	return l
}

func listKey(markup string) store.Key {
	return store.Key{Document: markup, Action: DefaultListAction}
}

func TestNew_RequiresManager(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestFindList_UninitializedManager(t *testing.T) {
	l := newLocator(t, store.NewManager(nil))

	_, err := l.FindList(testutil.TestContext(t), mocks.NewFakePage(fixtures.FruitList))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrContextUninitialized))
}

func TestFindList_StructuralThenCache(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)
	page := mocks.NewFakePage(fixtures.FruitList)

	first, err := l.FindList(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, SourceStructural, first.Source)
	testutil.AssertTexts(t, ctx, first.Items, "Apple", "Banana", "Cherry")
	assert.NotEmpty(t, first.RunID)

	cached, err := st.Get(ctx, listKey(fixtures.FruitList))
	require.NoError(t, err)
	assert.True(t, cached.Equal(first.Marker))
	assert.Equal(t, marker.CSS, cached.Kind())

	second, err := l.FindList(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	testutil.AssertTexts(t, ctx, second.Items, "Apple", "Banana", "Cherry")
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestFindList_CustomAction(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr, WithListAction("fruit_list"))

	_, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList))
	require.NoError(t, err)

	_, err = st.Get(ctx, store.Key{Document: fixtures.FruitList, Action: "fruit_list"})
	assert.NoError(t, err)
	_, err = st.Get(ctx, listKey(fixtures.FruitList))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindList_InferredFromHints(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.DataQAProducts), WithHints(fixtures.DataQAHints...))
	require.NoError(t, err)

	assert.Equal(t, SourceInferred, res.Source)
	assert.True(t, res.Marker.Equal(marker.NewAttribute("data-qa", "product-list", marker.Contains)))
	testutil.AssertTexts(t, ctx, res.Items, "Red Lamp", "Blue Chair", "Green Desk")

	cached, err := st.Get(ctx, listKey(fixtures.DataQAProducts))
	require.NoError(t, err)
	assert.True(t, cached.Equal(res.Marker))
}

func TestFindList_HintSource(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, _ := newStore(t)
	hints := mocks.NewStaticHints(fixtures.DataQAHints...)
	l := newLocator(t, mgr, WithHintSource(hints))

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.DataQAProducts))
	require.NoError(t, err)
	assert.Equal(t, SourceInferred, res.Source)
	assert.Equal(t, 1, hints.CallCount())

	// Caller hints take precedence.
	_, err = l.FindList(ctx, mocks.NewFakePage(fixtures.DataQAProducts), WithForceDetect(), WithHints("Red Lamp", "Blue Chair"))
	require.NoError(t, err)
	assert.Equal(t, 1, hints.CallCount())
}

func TestFindList_HintSourceFailureFallsThrough(t *testing.T) {
	mgr, _ := newStore(t)
	l := newLocator(t, mgr, WithHintSource(mocks.NewStaticHints().WithError(errors.New("vision down"))))

	_, err := l.FindList(testutil.TestContext(t), mocks.NewFakePage(fixtures.DataQAProducts))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestFindList_StructuralModeSkipsInference(t *testing.T) {
	mgr, _ := newStore(t)
	hints := mocks.NewStaticHints(fixtures.DataQAHints...)
	l := newLocator(t, mgr, WithHintSource(hints))

	_, err := l.FindList(testutil.TestContext(t), mocks.NewFakePage(fixtures.DataQAProducts), WithMode(ModeStructural))
	assert.ErrorIs(t, err, ErrListNotFound)
	assert.Zero(t, hints.CallCount())
}

func TestFindList_InferredModeSkipsStructural(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList), WithMode(ModeInferred), WithHints("Apple", "Banana", "Cherry"))
	require.NoError(t, err)
	assert.Equal(t, SourceInferred, res.Source)
	testutil.AssertTexts(t, ctx, res.Items, "Apple", "Banana", "Cherry")
}

func TestFindList_InvalidMode(t *testing.T) {
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)

	_, err := l.FindList(testutil.TestContext(t), mocks.NewFakePage(fixtures.FruitList), WithMode("psychic"))
	assert.Error(t, err)
}

func TestFindList_StaleMarkerIsEvictedAndRedetected(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)

	stale := marker.NewCSS("ol#gone")
	require.NoError(t, st.Put(ctx, listKey(fixtures.FruitList), stale))

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList))
	require.NoError(t, err)
	assert.Equal(t, SourceStructural, res.Source)

	cached, err := st.Get(ctx, listKey(fixtures.FruitList))
	require.NoError(t, err)
	assert.False(t, cached.Equal(stale))
	assert.True(t, cached.Equal(res.Marker))
}

func TestFindList_StaleMarkerWithNothingToFind(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)

	require.NoError(t, st.Put(ctx, listKey(fixtures.NoList), marker.NewCSS("ul")))

	_, err := l.FindList(ctx, mocks.NewFakePage(fixtures.NoList))
	assert.ErrorIs(t, err, ErrListNotFound)

	_, err = st.Get(ctx, listKey(fixtures.NoList))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindList_UnknownCachedTypeIsAMiss(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)

	snap := store.NewSnapshot()
	snap.Set(store.Fingerprint(fixtures.FruitList), DefaultListAction, marker.Record{Type: "hologram"})
	require.NoError(t, st.Import(ctx, snap))

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList))
	require.NoError(t, err)
	assert.Equal(t, SourceStructural, res.Source)
}

func TestFindList_Candidates(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.TwoItemGroups))
	require.NoError(t, err)
	assert.Equal(t, SourceCandidates, res.Source)
	assert.Nil(t, res.Marker)
	require.Len(t, res.Candidates, 1)
	testutil.AssertTexts(t, ctx, res.Candidates[0].Items, "Alpha", "Beta", "Gamma")

	_, err = st.Get(ctx, listKey(fixtures.TwoItemGroups))
	assert.ErrorIs(t, err, store.ErrNotFound, "inconclusive results are not cached")
}

func TestFindList_StableID(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, st := newStore(t)
	l := newLocator(t, mgr)

	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList), WithStableID("fruit-page"))
	require.NoError(t, err)

	byID, err := st.Get(ctx, store.Key{Document: "markup changed since", Action: DefaultListAction, StableID: "fruit-page"})
	require.NoError(t, err)
	assert.True(t, byID.Equal(res.Marker))
}

func TestFindList_ForceDetectSkipsCache(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)
	page := mocks.NewFakePage(fixtures.FruitList)

	_, err := l.FindList(ctx, page)
	require.NoError(t, err)

	res, err := l.FindList(ctx, page, WithForceDetect())
	require.NoError(t, err)
	assert.Equal(t, SourceStructural, res.Source)
}

func TestFindList_ConcurrentCallsAgree(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*ListResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Marker.Equal(results[0].Marker))
		testutil.AssertTexts(t, ctx, results[i].Items, "Apple", "Banana", "Cherry")
	}
}

// gatedPage blocks selector queries until released or its context ends.
type gatedPage struct {
	*mocks.FakePage
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedPage(markup string) *gatedPage {
	return &gatedPage{
		FakePage: mocks.NewFakePage(markup),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (p *gatedPage) QueryAll(ctx context.Context, selector string, kind marker.SelectorKind) ([]dom.Element, error) {
	p.once.Do(func() { close(p.entered) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.release:
	}
	return p.FakePage.QueryAll(ctx, selector, kind)
}

// notifyPage signals once its content has been read.
type notifyPage struct {
	*mocks.FakePage
	read chan struct{}
	once sync.Once
}

func (p *notifyPage) Content(ctx context.Context) (string, error) {
	defer p.once.Do(func() { close(p.read) })
	return p.FakePage.Content(ctx)
}

func TestFindList_JoinedCallSurvivesFirstCallerCancel(t *testing.T) {
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)

	first := newGatedPage(fixtures.FruitList)
	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.FindList(firstCtx, first)
		firstErr <- err
	}()
	<-first.entered

	second := &notifyPage{FakePage: mocks.NewFakePage(fixtures.FruitList), read: make(chan struct{})}
	type outcome struct {
		res *ListResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := l.FindList(context.Background(), second)
		done <- outcome{res, err}
	}()
	<-second.read
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, SourceStructural, got.res.Source)
	testutil.AssertTexts(t, context.Background(), got.res.Items, "Apple", "Banana", "Cherry")
}

func TestFindList_CancelledJoinerReturnsWithoutWaiting(t *testing.T) {
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)

	first := newGatedPage(fixtures.FruitList)
	type outcome struct {
		res *ListResult
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := l.FindList(context.Background(), first)
		firstDone <- outcome{res, err}
	}()
	<-first.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(first.release)
	got := <-firstDone
	require.NoError(t, got.err)
	assert.Equal(t, SourceStructural, got.res.Source)
}

func TestFindList_StoreFailureFallsBack(t *testing.T) {
	ctx := testutil.TestContext(t)
	st := store.NewMemoryStore(store.FingerprintRaw, nil)
	mgr, err := store.NewManagerWith(st, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	l := newLocator(t, mgr)
	res, err := l.FindList(ctx, mocks.NewFakePage(fixtures.FruitList))
	require.NoError(t, err)
	assert.Equal(t, SourceStructural, res.Source)
}

func TestFindList_CancelledContext(t *testing.T) {
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)

	_, err := l.FindList(testutil.CancelledContext(), mocks.NewFakePage(fixtures.FruitList))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_ReturnsChildrenOfEveryMatch(t *testing.T) {
	ctx := testutil.TestContext(t)
	mgr, _ := newStore(t)
	l := newLocator(t, mgr)
	page := mocks.NewFakePage(`<html><body><ul><li>a</li></ul><ul><li>b</li><li>c</li></ul></body></html>`)

	items, err := l.Resolve(ctx, page, marker.NewCSS("ul"))
	require.NoError(t, err)
	testutil.AssertTexts(t, ctx, items, "a", "b", "c")

	_, err = l.Resolve(ctx, page, marker.NewCSS("ul["))
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "AUTO": ModeAuto, "structural": ModeStructural, " inferred ": ModeInferred} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("vision")
	assert.Error(t, err)
}

func TestFindList_RecordsMetrics(t *testing.T) {
	ctx := testutil.TestContext(t)
	reg := prometheus.NewRegistry()
	mgr, _ := newStore(t)
	l := newLocator(t, mgr, WithMetrics(metrics.NewCollectorWith(reg, "truffle", nil)))
	page := mocks.NewFakePage(fixtures.FruitList)

	_, err := l.FindList(ctx, page)
	require.NoError(t, err)
	_, err = l.FindList(ctx, page)
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "truffle_cache_lookups_total", map[string]string{"result": "miss"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "truffle_cache_lookups_total", map[string]string{"result": "hit"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "truffle_detections_total", map[string]string{"source": "structural", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "truffle_detections_total", map[string]string{"source": "cache", "status": "success"}))
}

func TestFindList_Span(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	mgr, _ := newStore(t)
	l := newLocator(t, mgr, WithTracer(tp.Tracer("test")))

	res, err := l.FindList(testutil.TestContext(t), mocks.NewFakePage(fixtures.FruitList))
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "locator.find_list", spans[0].Name())
	attrs := attribute.NewSet(spans[0].Attributes()...)
	source, ok := attrs.Value("truffle.source")
	require.True(t, ok)
	assert.Equal(t, "structural", source.AsString())
	runID, _ := attrs.Value("truffle.run_id")
	assert.Equal(t, res.RunID, runID.AsString())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
