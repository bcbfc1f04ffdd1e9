package dom

import (
	"context"

	"github.com/BaSui01/truffle/marker"
)

// Element is a handle on one element of a document, live or parsed.
type Element interface {
	// Children returns the direct element children in document order.
	Children(ctx context.Context) ([]Element, error)
	// Text returns the trimmed text content.
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Path returns a CSS path that selects this element from the root.
	Path(ctx context.Context) (string, error)
	// HTML returns the outer markup.
	HTML(ctx context.Context) (string, error)
}

// Querier runs selectors against a document.
type Querier interface {
	QueryAll(ctx context.Context, selector string, kind marker.SelectorKind) ([]Element, error)
}

// Resolve renders m and runs it against q.
func Resolve(ctx context.Context, q Querier, m marker.Marker) ([]Element, error) {
	sel, err := m.RenderSelector()
	if err != nil {
		return nil, err
	}
	return q.QueryAll(ctx, sel, m.Kind())
}
