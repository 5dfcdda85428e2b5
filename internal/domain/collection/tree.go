package collection

import "sort"

// Tree is an arena of collections indexed by id. Parent and child links are ids.
type Tree struct {
	nodes    map[int64]Collection
	children map[int64][]int64
}

// NewTree builds a tree from a flat listing. Collections whose parent is absent
// from the listing are treated as roots.
func NewTree(cols []Collection) *Tree {
	t := &Tree{
		nodes:    make(map[int64]Collection, len(cols)),
		children: make(map[int64][]int64),
	}
	for _, c := range cols {
		t.nodes[c.ID()] = c
	}
	for _, c := range cols {
		parent := c.ParentID()
		if _, ok := t.nodes[parent]; !ok {
			parent = 0
		}
		t.children[parent] = append(t.children[parent], c.ID())
	}
	for k := range t.children {
		ids := t.children[k]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return t
}

// Get looks up a collection by id.
func (t *Tree) Get(id int64) (Collection, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// Roots returns the ids of collections without a known parent.
func (t *Tree) Roots() []int64 { return t.children[0] }

// Children returns the direct child ids of id in ascending order.
func (t *Tree) Children(id int64) []int64 { return t.children[id] }

// Descendants returns every id below id, depth-first.
func (t *Tree) Descendants(id int64) []int64 {
	var out []int64
	var walk func(int64)
	walk = func(n int64) {
		for _, c := range t.children[n] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Path returns the ids from the root down to id (inclusive).
func (t *Tree) Path(id int64) []int64 {
	var rev []int64
	seen := make(map[int64]bool)
	for cur := id; cur != 0 && !seen[cur]; {
		c, ok := t.nodes[cur]
		if !ok {
			break
		}
		seen[cur] = true
		rev = append(rev, cur)
		cur = c.ParentID()
	}
	out := make([]int64, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

// Len returns the number of collections.
func (t *Tree) Len() int { return len(t.nodes) }
