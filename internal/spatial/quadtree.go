package spatial

import "fmt"

// ID identifies an item stored in the tree. The tree never owns the items
// themselves, only their ids and last known rectangles.
type ID = uint32

type node struct {
	parent   *node
	level    int
	rect     Rect
	items    []ID
	children *[4]*node
}

// Tree is an adaptive region quad tree. Nodes split once they hold more than
// maxItems items (until maxLevel) and collapse again when all four children
// become empty leaves.
// Accessed only from the game loop goroutine, no locks.
type Tree struct {
	root     *node
	maxItems int
	maxLevel int

	owner map[ID]*node
	rects map[ID]Rect
}

// New creates a tree covering bounds. Items outside bounds are kept at the root.
func New(bounds Rect, maxItems, maxLevel int) *Tree {
	mustValid(bounds)
	if maxItems < 1 {
		maxItems = 1
	}
	return &Tree{
		root:     &node{rect: bounds},
		maxItems: maxItems,
		maxLevel: maxLevel,
		owner:    make(map[ID]*node, 1024),
		rects:    make(map[ID]Rect, 1024),
	}
}

// Len returns the number of stored items.
func (t *Tree) Len() int { return len(t.owner) }

// Has reports whether id is stored.
func (t *Tree) Has(id ID) bool {
	_, ok := t.owner[id]
	return ok
}

// RectOf returns the rectangle last recorded for id.
func (t *Tree) RectOf(id ID) (Rect, bool) {
	r, ok := t.rects[id]
	return r, ok
}

// Insert stores id with rectangle r. Inserting an id twice is a programmer error.
func (t *Tree) Insert(id ID, r Rect) {
	mustValid(r)
	if _, dup := t.owner[id]; dup {
		panic(fmt.Sprintf("spatial: duplicate insert of %d", id))
	}
	t.rects[id] = r
	n := t.descend(t.root, r)
	t.place(n, id)
	t.trySplit(n)
}

// Update moves id to rectangle r, relocating it only when its owning node
// changes.
func (t *Tree) Update(id ID, r Rect) {
	mustValid(r)
	old, ok := t.owner[id]
	if !ok {
		panic(fmt.Sprintf("spatial: update of unknown item %d", id))
	}
	t.rects[id] = r

	n := old
	for n.parent != nil && !n.rect.Contains(r) {
		n = n.parent
	}
	n = t.descend(n, r)
	if n == old {
		return
	}
	old.detach(id)
	t.place(n, id)
	t.merge(old)
	t.trySplit(n)
}

// Remove erases id from the tree.
func (t *Tree) Remove(id ID) {
	n, ok := t.owner[id]
	if !ok {
		panic(fmt.Sprintf("spatial: remove of unknown item %d", id))
	}
	n.detach(id)
	delete(t.owner, id)
	delete(t.rects, id)
	t.merge(n)
}

// Search calls visit for every item whose rectangle intersects r.
func (t *Tree) Search(r Rect, visit func(id ID)) {
	mustValid(r)
	t.search(t.root, r, visit)
}

func (t *Tree) search(n *node, r Rect, visit func(id ID)) {
	for _, id := range n.items {
		if t.rects[id].Intersects(r) {
			visit(id)
		}
	}
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		if c.rect.Intersects(r) {
			t.search(c, r, visit)
		}
	}
}

// ContainsAny reports whether any item intersecting r satisfies pred.
// It stops at the first match.
func (t *Tree) ContainsAny(r Rect, pred func(id ID) bool) bool {
	mustValid(r)
	return t.containsAny(t.root, r, pred)
}

func (t *Tree) containsAny(n *node, r Rect, pred func(id ID) bool) bool {
	for _, id := range n.items {
		if t.rects[id].Intersects(r) && pred(id) {
			return true
		}
	}
	if n.children == nil {
		return false
	}
	for _, c := range n.children {
		if c.rect.Intersects(r) && t.containsAny(c, r, pred) {
			return true
		}
	}
	return false
}

// descend walks down from n while the current node is split and r fits
// entirely inside one of its children.
func (t *Tree) descend(n *node, r Rect) *node {
	for n.children != nil {
		next := n.childFor(r)
		if next == nil {
			break
		}
		n = next
	}
	return n
}

func (n *node) childFor(r Rect) *node {
	for _, c := range n.children {
		if c.rect.Contains(r) {
			return c
		}
	}
	return nil
}

func (t *Tree) place(n *node, id ID) {
	n.items = append(n.items, id)
	t.owner[id] = n
}

func (n *node) detach(id ID) {
	for i, v := range n.items {
		if v == id {
			last := len(n.items) - 1
			n.items[i] = n.items[last]
			n.items = n.items[:last]
			return
		}
	}
	panic(fmt.Sprintf("spatial: item %d missing from its owner node", id))
}

// trySplit splits a leaf once it holds more than maxItems. A node at
// exactly capacity stays a leaf, and children are not re-split here.
func (t *Tree) trySplit(n *node) {
	if n.children != nil || n.level >= t.maxLevel || len(n.items) <= t.maxItems {
		return
	}
	var children [4]*node
	for i, q := range n.rect.quadrants() {
		children[i] = &node{parent: n, level: n.level + 1, rect: q}
	}
	n.children = &children

	kept := n.items[:0]
	for _, id := range n.items {
		if c := n.childFor(t.rects[id]); c != nil {
			t.place(c, id)
			continue
		}
		kept = append(kept, id)
	}
	n.items = kept
}

// merge collapses split nodes from n upward whose children are all empty
// leaves.
func (t *Tree) merge(n *node) {
	for q := n; q != nil; q = q.parent {
		if q.children == nil {
			continue
		}
		for _, c := range q.children {
			if c.children != nil || len(c.items) > 0 {
				return
			}
		}
		q.children = nil
	}
}

// Stats describes the current tree shape.
type Stats struct {
	Nodes      int
	SplitNodes int
	MaxDepth   int
	Items      int
}

// Stats walks the whole tree.
func (t *Tree) Stats() Stats {
	var s Stats
	var walk func(n *node)
	walk = func(n *node) {
		s.Nodes++
		s.Items += len(n.items)
		if n.level > s.MaxDepth {
			s.MaxDepth = n.level
		}
		if n.children == nil {
			return
		}
		s.SplitNodes++
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return s
}
