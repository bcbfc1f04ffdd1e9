package axtree

// Prune returns a copy of n without invisible or zero-area nodes, where no
// node has exactly one child. The input is not modified. An invisible root
// yields nil.
func Prune(n *Node) *Node {
	if n == nil || !n.IsVisible || n.BoundingBox.Width <= 0 || n.BoundingBox.Height <= 0 {
		return nil
	}

	var kept []*Node
	for _, c := range n.Children {
		if p := Prune(c); p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}

	cp := *n
	cp.Children = kept
	return &cp
}
