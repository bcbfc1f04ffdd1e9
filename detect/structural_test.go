package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/marker"
)

func parse(t *testing.T, markup string) *dom.Document {
	t.Helper()
	d, err := dom.Parse(markup)
	require.NoError(t, err)
	return d
}

func texts(t *testing.T, els []dom.Element) []string {
	t.Helper()
	out := make([]string, 0, len(els))
	for _, e := range els {
		s, err := e.Text(context.Background())
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestStructuralChain_FruitList(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<html><body><ul><li>Apple</li><li>Banana</li></ul></body></html>`)

	groups, err := NewStructuralChain(DefaultDetectorConfig(), nil).Detect(ctx, doc)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "ul", groups[0].Pattern)
	assert.Equal(t, []string{"Apple", "Banana"}, texts(t, groups[0].Items))

	c, ok, err := Conclude(ctx, groups)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, marker.NewCSS("html > body:nth-child(2) > ul:nth-child(1)").Equal(c.Marker))

	resolved, err := dom.Resolve(ctx, doc, c.Marker)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
}

func TestWrapperStrategy_LargestGroupWins(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<body>
		<ul id="a"><li>1</li><li>2</li></ul>
		<ol id="b"><li>1</li><li>2</li><li>3</li></ol>
		<ul id="c"><li>1</li><li>2</li><li>3</li></ul>
	</body>`)

	groups, err := WrapperStrategy(DefaultWrapperPatterns, nil)(ctx, doc)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	id, _, err := groups[0].Container.Attribute(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "c", id, "ul is tried before ol, so the ul tie wins")
	assert.Len(t, groups[0].Items, 3)
}

func TestWrapperStrategy_MalformedPatternSkipped(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<body><ol><li>x</li></ol></body>`)

	groups, err := WrapperStrategy([]string{"ul[", "ol"}, nil)(ctx, doc)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "ol", groups[0].Pattern)
}

func TestWrapperStrategy_EmptyContainersIgnored(t *testing.T) {
	doc := parse(t, `<body><ul></ul><div class="list"></div></body>`)
	groups, err := WrapperStrategy(DefaultWrapperPatterns, nil)(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestItemStrategy_ReturnsEveryGroup(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<body>
		<div><article>a</article><article>b</article></div>
		<section><div class="item">x</div></section>
	</body>`)

	groups, err := ItemStrategy(DefaultItemPatterns, nil)(ctx, doc)
	require.NoError(t, err)
	patterns := make([]string, 0, len(groups))
	for _, g := range groups {
		patterns = append(patterns, g.Pattern)
	}
	assert.Equal(t, []string{".item", `[class*="item"]`, "article"}, patterns)

	_, ok, err := Conclude(ctx, groups)
	require.NoError(t, err)
	assert.False(t, ok, "several groups are ambiguous")
}

func TestConclude_ItemGroup(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<body><div><article>a</article><article>b</article></div><article>c</article></body>`)

	items, err := doc.QueryAll(ctx, "div > article", marker.CSS)
	require.NoError(t, err)
	c, ok, err := Conclude(ctx, []Group{{Pattern: "article", Items: items}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, marker.NewCSS("html > body:nth-child(2) > div:nth-child(1)").Equal(c.Marker))

	all, err := doc.QueryAll(ctx, "article", marker.CSS)
	require.NoError(t, err)
	_, ok, err = Conclude(ctx, []Group{{Pattern: "article", Items: all}})
	require.NoError(t, err)
	assert.False(t, ok, "items under different parents")

	_, ok, err = Conclude(ctx, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChain_ShortCircuitAndFallthrough(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<body><p>x</p></body>`)
	var calls []string

	failing := Strategy(func(context.Context, dom.Querier) ([]Group, error) {
		calls = append(calls, "failing")
		return nil, errors.New("boom")
	})
	empty := Strategy(func(context.Context, dom.Querier) ([]Group, error) {
		calls = append(calls, "empty")
		return nil, nil
	})
	hit := Strategy(func(_ context.Context, q dom.Querier) ([]Group, error) {
		calls = append(calls, "hit")
		ps, err := q.QueryAll(ctx, "p", marker.CSS)
		return []Group{{Pattern: "p", Items: ps}}, err
	})
	never := Strategy(func(context.Context, dom.Querier) ([]Group, error) {
		calls = append(calls, "never")
		return nil, nil
	})

	groups, err := NewChain(nil, failing, empty, hit, never).Detect(ctx, doc)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"failing", "empty", "hit"}, calls)

	groups, err = NewChain(nil, failing, empty).Detect(ctx, doc)
	require.NoError(t, err)
	assert.Nil(t, groups)
}

func TestChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := Strategy(func(ctx context.Context, _ dom.Querier) ([]Group, error) { return nil, ctx.Err() })
	_, err := NewChain(nil, s).Detect(ctx, parse(t, "<p></p>"))
	assert.ErrorIs(t, err, context.Canceled)
}

func listMarkup(sizes []int) string {
	var b strings.Builder
	b.WriteString("<body>")
	for i, n := range sizes {
		fmt.Fprintf(&b, `<ul id="u%d">`, i)
		for j := 0; j < n; j++ {
			b.WriteString("<li>x</li>")
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</body>")
	return b.String()
}
