package dom

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/BaSui01/truffle/marker"
)

// Document is a parsed, immutable HTML document.
type Document struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse parses markup into a Document.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return FromNode(root), nil
}

// FromNode wraps an already parsed tree.
func FromNode(root *html.Node) *Document {
	return &Document{root: root, doc: goquery.NewDocumentFromNode(root)}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// QueryAll implements Querier. An invalid selector is an error.
func (d *Document) QueryAll(_ context.Context, selector string, kind marker.SelectorKind) ([]Element, error) {
	nodes, err := d.Select(selector, kind)
	if err != nil {
		return nil, err
	}
	return wrapAll(nodes), nil
}

// Select returns the raw nodes matched by selector.
func (d *Document) Select(selector string, kind marker.SelectorKind) ([]*html.Node, error) {
	switch kind {
	case marker.XPath:
		nodes, err := htmlquery.QueryAll(d.root, selector)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", selector, err)
		}
		return nodes, nil
	case marker.CSS, "":
		m, err := cascadia.Compile(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid css selector %q: %w", selector, err)
		}
		return d.doc.FindMatcher(m).Nodes, nil
	default:
		return nil, fmt.Errorf("unsupported selector kind %q", kind)
	}
}

// Elements calls fn for every element outside non-content subtrees, in
// document order.
func (d *Document) Elements(fn func(*html.Node)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if IsNonContent(c) {
				continue
			}
			fn(c)
			walk(c)
		}
	}
	walk(d.root)
}

// FindText returns the text nodes whose content contains needle, compared
// case-insensitively. Text under script, style, noscript and template is
// ignored.
func (d *Document) FindText(needle string) []*html.Node {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if strings.Contains(strings.ToLower(c.Data), needle) {
					out = append(out, c)
				}
			case html.ElementNode:
				if !IsNonContent(c) {
					walk(c)
				}
			case html.DocumentNode:
				walk(c)
			}
		}
	}
	walk(d.root)
	return out
}

// IsNonContent reports whether n is an element whose subtree is never
// rendered as text.
func IsNonContent(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
