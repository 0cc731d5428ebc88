package graph

import "fmt"

// Support returns the path of non-root nodes from the root down to id
// (inclusive), using a cache. The root's support is empty.
func (t *Tree) Support(id NodeID) ([]NodeID, error) {
	if id < 0 || id >= len(t.nodes) {
		return nil, fmt.Errorf("node %d not found", id)
	}
	if s, ok := t.supportCache[id]; ok {
		return s, nil
	}
	var rev []NodeID
	for n := id; n != Root; n = t.parent[n] {
		rev = append(rev, n)
	}
	s := make([]NodeID, len(rev))
	for i, n := range rev {
		s[len(rev)-1-i] = n
	}
	t.supportCache[id] = s
	return s, nil
}

// IsAncestor reports whether a lies on the support of b (a node is its own
// ancestor).
func (t *Tree) IsAncestor(a, b NodeID) bool {
	if a == Root {
		return true
	}
	for n := b; n != Root; n = t.parent[n] {
		if n == a {
			return true
		}
	}
	return false
}
