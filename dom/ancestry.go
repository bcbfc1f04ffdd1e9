package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// LCA returns the lowest common ancestor of a and b, each node counting as
// its own ancestor. It returns nil when the nodes are in different trees.
func LCA(a, b *html.Node) *html.Node {
	if a == nil || b == nil {
		return nil
	}
	seen := make(map[*html.Node]struct{})
	for n := b; n != nil; n = n.Parent {
		seen[n] = struct{}{}
	}
	for n := a; n != nil; n = n.Parent {
		if _, ok := seen[n]; ok {
			return n
		}
	}
	return nil
}

// Attr is one (key, value) pair in an element's attribute set.
type Attr struct {
	Key   string
	Value string
}

// TagKey is the pseudo attribute key carrying the tag name.
const TagKey = "tag"

// String renders the pair as key=value.
func (a Attr) String() string { return a.Key + "=" + a.Value }

// IsTag reports whether a is the tag pseudo attribute.
func (a Attr) IsTag() bool { return a.Key == TagKey }

var multiValued = map[string]bool{"class": true, "rel": true}

// AttributeSet extracts the attribute pairs of n: every attribute in document
// order with class and rel split into tokens, then the tag name. Integer
// values are dropped, as are keys listed in ignore.
func AttributeSet(n *html.Node, ignore map[string]bool) []Attr {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	var out []Attr
	seen := make(map[Attr]bool)
	add := func(a Attr) {
		if a.Value == "" || isInteger(a.Value) || seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
	}
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if ignore[key] {
			continue
		}
		if multiValued[key] {
			for _, tok := range strings.Fields(a.Val) {
				add(Attr{Key: key, Value: tok})
			}
			continue
		}
		add(Attr{Key: key, Value: strings.TrimSpace(a.Val)})
	}
	add(Attr{Key: TagKey, Value: n.Data})
	return out
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}
