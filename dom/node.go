package dom

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type nodeElement struct {
	n *html.Node
}

// Wrap returns the Element view of a parsed element node.
func Wrap(n *html.Node) Element { return nodeElement{n: n} }

// Unwrap returns the parsed node behind e, or nil for live elements.
func Unwrap(e Element) *html.Node {
	if ne, ok := e.(nodeElement); ok {
		return ne.n
	}
	return nil
}

func wrapAll(nodes []*html.Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, nodeElement{n: n})
		}
	}
	return out
}

func (e nodeElement) Children(context.Context) ([]Element, error) {
	var out []Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, nodeElement{n: c})
		}
	}
	return out, nil
}

func (e nodeElement) Text(context.Context) (string, error) {
	return TextContent(e.n), nil
}

func (e nodeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	for _, a := range e.n.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

func (e nodeElement) Path(context.Context) (string, error) {
	return NodePath(e.n), nil
}

func (e nodeElement) HTML(context.Context) (string, error) {
	return goquery.OuterHtml(goquery.NewDocumentFromNode(e.n).Selection)
}

// TextContent concatenates the descendant text of n, skipping non-content
// subtrees, and collapses whitespace.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		if IsNonContent(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// NodePath renders "html > body:nth-child(2) > ul:nth-child(1)" for n. The
// index counts element siblings, so the path is stable under text edits.
func NodePath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur.Parent == nil || cur.Parent.Type != html.ElementNode {
			parts = append(parts, cur.Data)
			break
		}
		parts = append(parts, cur.Data+":nth-child("+strconv.Itoa(elementIndex(cur))+")")
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func elementIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}
