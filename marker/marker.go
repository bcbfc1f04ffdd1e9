package marker

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/BaSui01/truffle/types"
)

// Type tags the marker variant inside a record.
type Type string

const (
	TypeSimple    Type = "simple"
	TypeAttribute Type = "attribute"
)

// SelectorKind is the query language of a Simple marker.
type SelectorKind string

const (
	CSS   SelectorKind = "css"
	XPath SelectorKind = "xpath"
)

// MatchMode controls how Attribute markers compare attribute values.
type MatchMode string

const (
	Exact    MatchMode = "exact"
	Contains MatchMode = "contains"
)

// Marker describes how to re-find an element on a later visit.
type Marker interface {
	Type() Type
	// Record returns the serializable form of the marker.
	Record() Record
	// RenderSelector builds a query expression from the marker's fields.
	RenderSelector() (string, error)
	// Kind reports which query language RenderSelector produces.
	Kind() SelectorKind
	Equal(other Marker) bool
}

// Simple is a raw selector.
type Simple struct {
	Selector     string
	SelectorKind SelectorKind
}

// NewCSS returns a Simple marker holding a CSS selector.
func NewCSS(selector string) Simple {
	return Simple{Selector: selector, SelectorKind: CSS}
}

// NewXPath returns a Simple marker holding an XPath expression.
func NewXPath(expr string) Simple {
	return Simple{Selector: expr, SelectorKind: XPath}
}

func (s Simple) Type() Type { return TypeSimple }

func (s Simple) Kind() SelectorKind {
	if s.SelectorKind == "" {
		return CSS
	}
	return s.SelectorKind
}

func (s Simple) RenderSelector() (string, error) {
	return s.Selector, nil
}

func (s Simple) Record() Record {
	return Record{Type: TypeSimple, Selector: s.Selector, SelectorKind: s.SelectorKind}
}

func (s Simple) Equal(other Marker) bool {
	o, ok := other.(Simple)
	return ok && o == s
}

func (s Simple) String() string {
	return fmt.Sprintf("simple(%s:%s)", s.Kind(), s.Selector)
}

// Attribute matches elements by a set of attribute values.
type Attribute struct {
	Attributes map[string]string
	MatchMode  MatchMode
}

// NewAttribute returns an Attribute marker for a single key/value pair.
func NewAttribute(key, value string, mode MatchMode) Attribute {
	return Attribute{Attributes: map[string]string{key: value}, MatchMode: mode}
}

func (a Attribute) Type() Type { return TypeAttribute }

func (a Attribute) Kind() SelectorKind { return CSS }

// RenderSelector renders a compound CSS attribute selector. Keys are sorted
// so the same marker always renders the same selector.
func (a Attribute) RenderSelector() (string, error) {
	var op string
	switch a.MatchMode {
	case Exact:
		op = "="
	case Contains:
		op = "~="
	default:
		return "", types.Errorf(types.ErrInvalidMatchMode, "unsupported match mode %q", a.MatchMode)
	}

	keys := make([]string, 0, len(a.Attributes))
	for k := range a.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "[%s%s%q]", k, op, a.Attributes[k])
	}
	return b.String(), nil
}

func (a Attribute) Record() Record {
	return Record{Type: TypeAttribute, Attributes: maps.Clone(a.Attributes), MatchMode: a.MatchMode}
}

func (a Attribute) Equal(other Marker) bool {
	o, ok := other.(Attribute)
	return ok && o.MatchMode == a.MatchMode && maps.Equal(o.Attributes, a.Attributes)
}

func (a Attribute) String() string {
	sel, err := a.RenderSelector()
	if err != nil {
		return fmt.Sprintf("attribute(%v, %s)", a.Attributes, a.MatchMode)
	}
	return fmt.Sprintf("attribute(%s)", sel)
}

// Equal compares two possibly-nil markers.
func Equal(a, b Marker) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
