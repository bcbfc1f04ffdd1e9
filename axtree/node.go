package axtree

import (
	"encoding/json"
	"fmt"
)

// DefaultIDAttribute is the attribute the build script stamps on elements.
const DefaultIDAttribute = "data-truffle-id"

// BoundingBox is the rendered size of a node in CSS pixels.
type BoundingBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is one entry of the accessibility tree. Text leaves carry the id of
// the element that contains them.
type Node struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Role        string      `json:"role,omitempty"`
	Text        string      `json:"text"`
	BoundingBox BoundingBox `json:"boundingBox"`
	IsVisible   bool        `json:"isVisible"`
	Children    []*Node     `json:"children"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Decode parses the JSON produced by Script.
func Decode(raw []byte) (*Node, error) {
	var n *Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode accessibility tree: %w", err)
	}
	if n == nil {
		return nil, fmt.Errorf("decode accessibility tree: empty result")
	}
	return n, nil
}

// Walk visits n and its descendants depth-first, pre-order. Returning false
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool { total++; return true })
	return total
}

// Find returns the first node with the given id.
func Find(n *Node, id string) *Node {
	var found *Node
	Walk(n, func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// Clone returns a deep copy of n.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Children = nil
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = Clone(c)
		}
	}
	return &cp
}
