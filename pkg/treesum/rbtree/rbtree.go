// Package rbtree implements an ordered map as a red-black tree with
// explicit cursors. Unlike Go's built-in map it keeps elements sorted
// by a caller-supplied comparison, allows duplicate keys, and supports
// in-order traversal from any position.
//
// Duplicate keys form a stable run: equal keys are visited in
// insertion order, and Find positions the cursor on the first element
// of the run. Trees are not safe for concurrent use.
package rbtree

// node is a tree node. Each tree shares one sentinel node in place of
// nil child and parent pointers, which removes nearly all nil checks
// from the rebalancing code. The sentinel's parent field is scratch
// space for the delete fixup.
type node[K, V any] struct {
	parent *node[K, V]
	left   *node[K, V]
	right  *node[K, V]
	red    bool
	key    K
	value  V
}

// Tree is an ordered map from K to V. The zero value is not usable;
// call New.
type Tree[K, V any] struct {
	cmp      func(a, b K) int
	root     *node[K, V] // pseudo-root; the real root is root.left
	sentinel *node[K, V]
	size     int
}

// New creates an empty tree ordered by cmp, which must return a value
// less than, equal to, or greater than zero when a sorts before, equal
// to, or after b.
func New[K, V any](cmp func(a, b K) int) *Tree[K, V] {
	t := &Tree[K, V]{cmp: cmp}
	t.sentinel = &node[K, V]{}
	t.sentinel.parent = t.sentinel
	t.sentinel.left = t.sentinel
	t.sentinel.right = t.sentinel
	t.root = &node[K, V]{parent: t.sentinel, left: t.sentinel, right: t.sentinel}
	return t
}

// Len returns the number of elements in the tree.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// Empty reports whether the tree holds no elements.
func (t *Tree[K, V]) Empty() bool {
	return t.root.left == t.sentinel
}

// Cursor points at one element of a tree, or past the end. Cursors are
// cheap to copy. Deleting an element invalidates cursors pointing at
// it; all other cursors stay usable.
type Cursor[K, V any] struct {
	tree *Tree[K, V]
	node *node[K, V]
}

// Begin returns a cursor at the smallest element, or the end cursor
// for an empty tree.
func (t *Tree[K, V]) Begin() Cursor[K, V] {
	x := t.root.left
	for x.left != t.sentinel {
		x = x.left
	}
	return Cursor[K, V]{t, x}
}

// End returns the past-the-end cursor.
func (t *Tree[K, V]) End() Cursor[K, V] {
	return Cursor[K, V]{t, t.sentinel}
}

// Valid reports whether the cursor points at an element.
func (c Cursor[K, V]) Valid() bool {
	return c.tree != nil && c.node != c.tree.sentinel
}

// Key returns the key at the cursor. The cursor must be valid.
func (c Cursor[K, V]) Key() K {
	return c.node.key
}

// Value returns the value at the cursor. The cursor must be valid.
func (c Cursor[K, V]) Value() V {
	return c.node.value
}

// Next returns a cursor at the in-order successor, or the end cursor
// when there is none. Calling Next on the end cursor returns it
// unchanged.
func (c Cursor[K, V]) Next() Cursor[K, V] {
	t := c.tree
	x := c.node
	if x == t.sentinel {
		return c
	}
	if y := x.right; y != t.sentinel {
		for y.left != t.sentinel {
			y = y.left
		}
		return Cursor[K, V]{t, y}
	}
	y := x.parent
	for x == y.right {
		x = y
		y = y.parent
	}
	if y == t.root {
		return Cursor[K, V]{t, t.sentinel}
	}
	return Cursor[K, V]{t, y}
}

// Prev returns a cursor at the in-order predecessor, or the end cursor
// when there is none.
func (c Cursor[K, V]) Prev() Cursor[K, V] {
	t := c.tree
	x := c.node
	if x == t.sentinel {
		return c
	}
	if y := x.left; y != t.sentinel {
		for y.right != t.sentinel {
			y = y.right
		}
		return Cursor[K, V]{t, y}
	}
	y := x.parent
	for x == y.left {
		if y == t.root {
			return Cursor[K, V]{t, t.sentinel}
		}
		x = y
		y = y.parent
	}
	return Cursor[K, V]{t, y}
}

// rotateLeft applies the left rotation from Cormen, Leiserson and
// Rivest.
func (t *Tree[K, V]) rotateLeft(x *node[K, V]) {
	sent := t.sentinel

	y := x.right
	x.right = y.left
	if y.left != sent {
		y.left.parent = x
	}
	y.parent = x.parent
	if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

// rotateRight is the mirror of rotateLeft.
func (t *Tree[K, V]) rotateRight(y *node[K, V]) {
	sent := t.sentinel

	x := y.left
	y.left = x.right
	if x.right != sent {
		x.right.parent = y
	}
	x.parent = y.parent
	if y == y.parent.left {
		y.parent.left = x
	} else {
		y.parent.right = x
	}
	x.right = y
	y.parent = x
}

// insertNode places z as a leaf using plain binary-tree insertion.
// Equal keys descend to the right, which is what makes duplicate runs
// come out in insertion order.
func (t *Tree[K, V]) insertNode(z *node[K, V]) {
	sent := t.sentinel

	z.left = sent
	z.right = sent
	y := t.root
	x := t.root.left
	for x != sent {
		y = x
		if t.cmp(x.key, z.key) > 0 {
			x = x.left
		} else {
			x = x.right
		}
	}
	z.parent = y
	if y == t.root || t.cmp(y.key, z.key) > 0 {
		y.left = z
	} else {
		y.right = z
	}
}

// Insert adds a key/value pair and returns a cursor at the new
// element. Duplicate keys are allowed; the new element lands after
// existing equal keys in traversal order.
func (t *Tree[K, V]) Insert(key K, value V) Cursor[K, V] {
	z := &node[K, V]{key: key, value: value}
	t.insertNode(z)
	z.red = true

	x := z
	for x.parent.red {
		if x.parent == x.parent.parent.left {
			y := x.parent.parent.right
			if y.red {
				x.parent.red = false
				y.red = false
				x.parent.parent.red = true
				x = x.parent.parent
			} else {
				if x == x.parent.right {
					x = x.parent
					t.rotateLeft(x)
				}
				x.parent.red = false
				x.parent.parent.red = true
				t.rotateRight(x.parent.parent)
			}
		} else {
			y := x.parent.parent.left
			if y.red {
				x.parent.red = false
				y.red = false
				x.parent.parent.red = true
				x = x.parent.parent
			} else {
				if x == x.parent.left {
					x = x.parent
					t.rotateRight(x)
				}
				x.parent.red = false
				x.parent.parent.red = true
				t.rotateLeft(x.parent.parent)
			}
		}
	}
	t.root.left.red = false

	t.size++
	return Cursor[K, V]{t, z}
}

// LowerBound returns a cursor at the first element whose key is not
// less than key, or the end cursor when every key is smaller. For a
// duplicate run this is the run's first element.
func (t *Tree[K, V]) LowerBound(key K) Cursor[K, V] {
	best := t.sentinel
	x := t.root.left
	for x != t.sentinel {
		if t.cmp(x.key, key) >= 0 {
			best = x
			x = x.left
		} else {
			x = x.right
		}
	}
	return Cursor[K, V]{t, best}
}

// Find returns a cursor at the first element, in traversal order,
// whose key equals key, or the end cursor when the key is absent.
func (t *Tree[K, V]) Find(key K) Cursor[K, V] {
	c := t.LowerBound(key)
	if c.node != t.sentinel && t.cmp(c.node.key, key) == 0 {
		return c
	}
	return Cursor[K, V]{t, t.sentinel}
}

// Delete removes the element at the cursor and rebalances the tree.
// Deleting through an end cursor is a no-op.
func (t *Tree[K, V]) Delete(c Cursor[K, V]) {
	z := c.node
	if z == nil || z == t.sentinel {
		return
	}
	sent := t.sentinel

	// y is the node to splice out: z itself, or its successor when z
	// has two children. x is y's only child (possibly the sentinel).
	y := z
	if z.left != sent && z.right != sent {
		y = c.Next().node
	}
	x := y.right
	if y.left != sent {
		x = y.left
	}

	x.parent = y.parent
	if x.parent == t.root {
		t.root.left = x
	} else if y == y.parent.left {
		y.parent.left = x
	} else {
		y.parent.right = x
	}

	if y != z {
		if !y.red {
			t.deleteFixup(x)
		}
		// Move y into z's position so cursors at y remain valid.
		y.left = z.left
		y.right = z.right
		y.parent = z.parent
		y.red = z.red
		z.left.parent = y
		z.right.parent = y
		if z == z.parent.left {
			z.parent.left = y
		} else {
			z.parent.right = y
		}
	} else if !y.red {
		t.deleteFixup(x)
	}

	t.size--
}

// deleteFixup restores the red-black invariants after removing a black
// node, following Cormen, Leiserson and Rivest.
func (t *Tree[K, V]) deleteFixup(x *node[K, V]) {
	root := t.root.left

	for !x.red && x != root {
		if x == x.parent.left {
			w := x.parent.right
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if !w.right.red && !w.left.red {
				w.red = true
				x = x.parent
			} else {
				if !w.right.red {
					w.left.red = false
					w.red = true
					t.rotateRight(w)
					w = x.parent.right
				}
				w.red = x.parent.red
				x.parent.red = false
				w.right.red = false
				t.rotateLeft(x.parent)
				x = root
			}
		} else {
			w := x.parent.left
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if !w.right.red && !w.left.red {
				w.red = true
				x = x.parent
			} else {
				if !w.left.red {
					w.right.red = false
					w.red = true
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.red = x.parent.red
				x.parent.red = false
				w.left.red = false
				t.rotateRight(x.parent)
				x = root
			}
		}
	}
	x.red = false
}

// Verify checks the red-black invariants: the sentinel and root are
// black, no red node has a red child, and every path from the root to
// a leaf crosses the same number of black nodes. It exists for tests
// and costs a full traversal.
func (t *Tree[K, V]) Verify() bool {
	if t.sentinel.red {
		return false
	}
	if t.root.left.red {
		return false
	}

	blackDepth := -1
	count := 0
	if t.root.left != t.sentinel {
		if !t.verifyNode(t.root.left, 0, &blackDepth, &count) {
			return false
		}
	}
	return count == t.size
}

func (t *Tree[K, V]) verifyNode(z *node[K, V], blacks int, blackDepth, count *int) bool {
	if z.red && (z.left.red || z.right.red) {
		return false
	}
	if !z.red {
		blacks++
	}
	*count++
	if *count > t.size {
		return false
	}

	if z.left != t.sentinel {
		if !t.verifyNode(z.left, blacks, blackDepth, count) {
			return false
		}
	} else if *blackDepth < 0 {
		*blackDepth = blacks
	} else if *blackDepth != blacks {
		return false
	}

	if z.right != t.sentinel {
		if !t.verifyNode(z.right, blacks, blackDepth, count) {
			return false
		}
	} else if *blackDepth < 0 {
		*blackDepth = blacks
	} else if *blackDepth != blacks {
		return false
	}

	return true
}
