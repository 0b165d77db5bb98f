// Package rbtree provides a generic red-black tree with an API similar to
// C++ STL's ordered containers. Nodes live in an arena (Allocator) and are
// addressed by stable uint32 handles, so iterators survive every mutation
// except the erasure of the element they point to.
package rbtree

import (
	"cmp"
	"iter"
)

// Compare is a strict weak ordering over element values.
type Compare[T any] func(a, b T) bool

// Less returns the natural ordering for ordered types.
func Less[T cmp.Ordered]() Compare[T] {
	return cmp.Less[T]
}

// Option configures a tree at construction time.
type Option[T any] func(*RBTree[T])

// WithAllocator binds the tree to an existing node allocator. Several trees
// may share one allocator as long as access is serialized by the caller.
func WithAllocator[T any](allocator *Allocator[T]) Option[T] {
	return func(tree *RBTree[T]) {
		tree.allocator = allocator
	}
}

// RBTree is a red-black tree ordered by a Compare function.
//
// The zero value is not usable; create trees with New or NewOrdered.
type RBTree[T any] struct {
	// Nodes allocator.
	allocator *Allocator[T]

	less Compare[T]

	// Root of the tree.
	root uint32

	// Number of nodes under root, including the root.
	count int
}

// New creates a new red-black tree ordered by less.
func New[T any](less Compare[T], opts ...Option[T]) *RBTree[T] {
	tree := &RBTree[T]{less: less, root: nilNode, count: 0}

	for _, opt := range opts {
		opt(tree)
	}

	if tree.allocator == nil {
		tree.allocator = NewAllocator[T]()
	}

	return tree
}

// NewOrdered creates a new tree ordered by the natural order of T.
func NewOrdered[T cmp.Ordered](opts ...Option[T]) *RBTree[T] {
	return New(Less[T](), opts...)
}

func (tree *RBTree[T]) storage() []node[T] {
	return tree.allocator.storage
}

// Allocator returns the bound nodes allocator.
func (tree *RBTree[T]) Allocator() *Allocator[T] {
	return tree.allocator
}

// Less returns the comparison function that orders the tree.
func (tree *RBTree[T]) Less() Compare[T] {
	return tree.less
}

// Len returns the number of elements in the tree.
func (tree *RBTree[T]) Len() int {
	return tree.count
}

// Empty reports whether the tree holds no elements.
func (tree *RBTree[T]) Empty() bool {
	return tree.count == 0
}

// MaxSize returns the largest number of elements the allocator can provide.
func (tree *RBTree[T]) MaxSize() int {
	return tree.allocator.MaxSize()
}

// Count returns the number of elements equivalent to value. It is at most one
// unless values were added with Insert.
func (tree *RBTree[T]) Count(value T) int {
	count := 0

	for it, last := tree.EqualRange(value); !it.Equal(last); it = it.Next() {
		count++
	}

	return count
}

// Find returns an iterator to an element equivalent to value, or End().
func (tree *RBTree[T]) Find(value T) Iterator[T] {
	return Iterator[T]{tree, tree.find(value)}
}

// Contains reports whether an element equivalent to value is stored.
func (tree *RBTree[T]) Contains(value T) bool {
	return tree.find(value) != endNode
}

func (tree *RBTree[T]) find(value T) uint32 {
	alloc := tree.storage()
	nodeIdx := tree.root

	for nodeIdx != nilNode {
		switch {
		case tree.less(value, alloc[nodeIdx].value):
			nodeIdx = alloc[nodeIdx].left
		case tree.less(alloc[nodeIdx].value, value):
			nodeIdx = alloc[nodeIdx].right
		default:
			return nodeIdx
		}
	}

	return endNode
}

// LowerBound returns the first element that is not less than value, or End().
func (tree *RBTree[T]) LowerBound(value T) Iterator[T] {
	alloc := tree.storage()
	result := endNode

	for nodeIdx := tree.root; nodeIdx != nilNode; {
		if !tree.less(alloc[nodeIdx].value, value) {
			result = nodeIdx
			nodeIdx = alloc[nodeIdx].left
		} else {
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return Iterator[T]{tree, result}
}

// UpperBound returns the first element that is greater than value, or End().
func (tree *RBTree[T]) UpperBound(value T) Iterator[T] {
	alloc := tree.storage()
	result := endNode

	for nodeIdx := tree.root; nodeIdx != nilNode; {
		if tree.less(value, alloc[nodeIdx].value) {
			result = nodeIdx
			nodeIdx = alloc[nodeIdx].left
		} else {
			nodeIdx = alloc[nodeIdx].right
		}
	}

	return Iterator[T]{tree, result}
}

// EqualRange returns the half-open range of elements equivalent to value.
func (tree *RBTree[T]) EqualRange(value T) (Iterator[T], Iterator[T]) {
	return tree.LowerBound(value), tree.UpperBound(value)
}

// Begin returns an iterator to the minimum element, or End() if the tree is
// empty.
func (tree *RBTree[T]) Begin() Iterator[T] {
	if tree.root == nilNode {
		return Iterator[T]{tree, endNode}
	}

	return Iterator[T]{tree, minimum(tree.root, tree.storage())}
}

// End returns the past-the-last iterator.
func (tree *RBTree[T]) End() Iterator[T] {
	return Iterator[T]{tree, endNode}
}

// Min is an alias of Begin.
func (tree *RBTree[T]) Min() Iterator[T] {
	return tree.Begin()
}

// Max returns an iterator to the maximum element. If the tree is empty,
// the result is the before-the-first iterator.
func (tree *RBTree[T]) Max() Iterator[T] {
	if tree.root == nilNode {
		return Iterator[T]{tree, rendNode}
	}

	return Iterator[T]{tree, maximum(tree.root, tree.storage())}
}

// RBegin returns a reverse iterator to the maximum element.
func (tree *RBTree[T]) RBegin() ReverseIterator[T] {
	return ReverseIterator[T]{tree.Max()}
}

// REnd returns the reverse past-the-last iterator, which sits before the
// minimum element.
func (tree *RBTree[T]) REnd() ReverseIterator[T] {
	return ReverseIterator[T]{Iterator[T]{tree, rendNode}}
}

// All yields the elements in ascending order.
func (tree *RBTree[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for it := tree.Begin(); !it.Limit(); it = it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// Backward yields the elements in descending order.
func (tree *RBTree[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for it := tree.RBegin(); !it.Limit(); it = it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// Insert adds value unconditionally, after any equivalent elements, and
// returns an iterator to it.
func (tree *RBTree[T]) Insert(value T) Iterator[T] {
	parent, left := tree.insertionPoint(value)

	return Iterator[T]{tree, tree.link(value, parent, left)}
}

// InsertUnique adds value unless an equivalent element is already stored.
// It returns true and the new element, or false and the existing one.
func (tree *RBTree[T]) InsertUnique(value T) (bool, Iterator[T]) {
	if existing := tree.find(value); existing != endNode {
		return false, Iterator[T]{tree, existing}
	}

	return true, tree.Insert(value)
}

// insertionPoint finds the leaf slot for value. Equivalent values descend
// to the right so that insertion order is preserved among them.
func (tree *RBTree[T]) insertionPoint(value T) (uint32, bool) {
	alloc := tree.storage()
	parent := nilNode
	left := false

	for cursor := tree.root; cursor != nilNode; {
		parent = cursor
		left = tree.less(value, alloc[cursor].value)

		cursor = childOf(cursor, left, alloc)
	}

	return parent, left
}

// link allocates a red leaf under parent and rebalances. The allocation
// happens first so a failed malloc leaves the tree untouched.
func (tree *RBTree[T]) link(value T, parent uint32, left bool) uint32 {
	nodeIdx := tree.allocator.malloc()
	alloc := tree.storage()

	alloc[nodeIdx] = node[T]{value: value, parent: parent, left: nilNode, right: nilNode, color: red}

	switch {
	case parent == nilNode:
		tree.root = nodeIdx
	case left:
		alloc[parent].left = nodeIdx
	default:
		alloc[parent].right = nodeIdx
	}

	tree.count++
	tree.insertFixup(nodeIdx)

	return nodeIdx
}

func (tree *RBTree[T]) insertFixup(nodeIdx uint32) {
	alloc := tree.storage()

	for nodeIdx != tree.root && colorOf(alloc[nodeIdx].parent, alloc) == red {
		parent := alloc[nodeIdx].parent
		// A red parent is never the root, so the grandparent exists.
		grandparent := alloc[parent].parent
		side := parent == alloc[grandparent].left
		uncle := childOf(grandparent, !side, alloc)

		// Case 1: parent and uncle are both red.
		if colorOf(uncle, alloc) == red {
			alloc[parent].color = black
			alloc[uncle].color = black
			alloc[grandparent].color = red
			nodeIdx = grandparent

			continue
		}

		// Case 2: inner child, turn it into the outer shape.
		if nodeIdx == childOf(parent, !side, alloc) {
			nodeIdx = parent
			tree.rotate(nodeIdx, side)
			parent = alloc[nodeIdx].parent
		}

		// Case 3: outer child.
		alloc[parent].color = black
		alloc[grandparent].color = red
		tree.rotate(grandparent, !side)
	}

	alloc[tree.root].color = black
}

// Delete removes one element equivalent to value. Returns true iff such an
// element was found.
func (tree *RBTree[T]) Delete(value T) bool {
	nodeIdx := tree.find(value)
	if nodeIdx == endNode {
		return false
	}

	tree.deleteNode(nodeIdx)

	return true
}

// DeleteAt erases the element the iterator points to and returns an iterator
// to its successor.
//
// REQUIRES: it.Valid().
func (tree *RBTree[T]) DeleteAt(it Iterator[T]) Iterator[T] {
	doAssert(it.tree == tree && it.Valid())

	next := successor(it.node, tree.storage())
	tree.deleteNode(it.node)

	return Iterator[T]{tree, next}
}

// clearStackHint covers the height of any tree a 32-bit handle space allows.
const clearStackHint = 64

// Clear removes all the nodes from the tree, children before parents.
func (tree *RBTree[T]) Clear() {
	alloc := tree.storage()
	stack := make([]uint32, 0, clearStackHint)

	var lastVisited uint32

	for cursor := tree.root; cursor != nilNode || len(stack) > 0; {
		if cursor != nilNode {
			stack = append(stack, cursor)
			cursor = alloc[cursor].left

			continue
		}

		top := stack[len(stack)-1]
		if right := alloc[top].right; right != nilNode && right != lastVisited {
			cursor = right

			continue
		}

		stack = stack[:len(stack)-1]
		tree.allocator.free(top)
		lastVisited = top
	}

	tree.root = nilNode
	tree.count = 0
}

func (tree *RBTree[T]) deleteNode(target uint32) {
	alloc := tree.storage()

	var child, childParent uint32

	removedColor := alloc[target].color

	switch {
	case alloc[target].left == nilNode:
		child = alloc[target].right
		childParent = alloc[target].parent
		tree.transplant(target, child)
	case alloc[target].right == nilNode:
		child = alloc[target].left
		childParent = alloc[target].parent
		tree.transplant(target, child)
	default:
		heir := minimum(alloc[target].right, alloc)
		removedColor = alloc[heir].color
		child = alloc[heir].right

		if alloc[heir].parent == target {
			childParent = heir
		} else {
			childParent = alloc[heir].parent
			tree.transplant(heir, child)
			alloc[heir].right = alloc[target].right
			alloc[alloc[heir].right].parent = heir
		}

		tree.transplant(target, heir)
		alloc[heir].left = alloc[target].left
		alloc[alloc[heir].left].parent = heir
		alloc[heir].color = alloc[target].color
	}

	if removedColor == black {
		tree.deleteFixup(child, childParent)
	}

	tree.allocator.free(target)
	tree.count--
}

// deleteFixup repairs a black deficit at child. The nil sentinel cannot
// record its parent, so the parent travels alongside it.
func (tree *RBTree[T]) deleteFixup(child, parent uint32) {
	alloc := tree.storage()

	for child != tree.root && colorOf(child, alloc) == black {
		side := child == alloc[parent].left
		sibling := childOf(parent, !side, alloc)

		// Case 1: red sibling, rotate a black one into place.
		if colorOf(sibling, alloc) == red {
			alloc[sibling].color = black
			alloc[parent].color = red
			tree.rotate(parent, side)
			sibling = childOf(parent, !side, alloc)
		}

		near := childOf(sibling, side, alloc)
		far := childOf(sibling, !side, alloc)

		// Case 2: both nephews black, push the deficit up.
		if colorOf(near, alloc) == black && colorOf(far, alloc) == black {
			alloc[sibling].color = red
			child = parent
			parent = alloc[child].parent

			continue
		}

		// Case 3: far nephew black, near one red.
		if colorOf(far, alloc) == black {
			alloc[near].color = black
			alloc[sibling].color = red
			tree.rotate(sibling, !side)
			sibling = childOf(parent, !side, alloc)
			far = childOf(sibling, !side, alloc)
		}

		// Case 4: far nephew red.
		alloc[sibling].color = alloc[parent].color
		alloc[parent].color = black
		alloc[far].color = black
		tree.rotate(parent, side)
		child = tree.root
	}

	if child != nilNode {
		alloc[child].color = black
	}
}

// transplant puts the subtree rooted at newn where oldn used to hang.
func (tree *RBTree[T]) transplant(oldn, newn uint32) {
	alloc := tree.storage()
	parent := alloc[oldn].parent

	switch {
	case parent == nilNode:
		tree.root = newn
	case oldn == alloc[parent].left:
		alloc[parent].left = newn
	default:
		alloc[parent].right = newn
	}

	if newn != nilNode {
		alloc[newn].parent = parent
	}
}

// rotate performs a tree rotation in the specified direction.
// left=true performs left rotation, left=false performs right rotation.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
func (tree *RBTree[T]) rotate(pivot uint32, left bool) {
	alloc := tree.storage()

	// The child in the opposite direction of rotation is promoted.
	child := childOf(pivot, !left, alloc)
	doAssert(child != nilNode)

	// Move the inner subtree.
	inner := childOf(child, left, alloc)
	if left {
		alloc[pivot].right = inner
	} else {
		alloc[pivot].left = inner
	}

	if inner != nilNode {
		alloc[inner].parent = pivot
	}

	// Update parent links.
	tree.transplant(pivot, child)

	// Complete the rotation.
	if left {
		alloc[child].left = pivot
	} else {
		alloc[child].right = pivot
	}

	alloc[pivot].parent = child
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (tree *RBTree[T]) Height() int {
	return height(tree.root, tree.storage())
}

func height[T any](nodeIdx uint32, alloc []node[T]) int {
	if nodeIdx == nilNode {
		return 0
	}

	return 1 + max(height(alloc[nodeIdx].left, alloc), height(alloc[nodeIdx].right, alloc))
}

// BlackHeight returns the number of black nodes on the leftmost root-to-nil
// path, not counting the nil sentinel. Verify checks that every path agrees.
func (tree *RBTree[T]) BlackHeight() int {
	alloc := tree.storage()
	blackCount := 0

	for nodeIdx := tree.root; nodeIdx != nilNode; nodeIdx = alloc[nodeIdx].left {
		if alloc[nodeIdx].color == black {
			blackCount++
		}
	}

	return blackCount
}

// Clone performs a deep copy of the tree into a fresh allocator with the same
// limit.
func (tree *RBTree[T]) Clone() *RBTree[T] {
	allocator := NewAllocator[T]()
	allocator.Limit = tree.allocator.Limit

	return tree.CloneWith(allocator)
}

// CloneWith performs a deep copy of the tree - the nodes are created from
// scratch inside allocator, mirroring the shape and colors of the source.
func (tree *RBTree[T]) CloneWith(allocator *Allocator[T]) *RBTree[T] {
	clone := &RBTree[T]{allocator: allocator, less: tree.less, root: nilNode, count: 0}

	nodeMap := map[uint32]uint32{nilNode: nilNode}
	originStorage := tree.storage()

	for it := tree.Begin(); !it.Limit(); it = it.Next() {
		newNode := allocator.malloc()
		cloneNode := &allocator.storage[newNode]
		cloneNode.value = originStorage[it.node].value
		cloneNode.color = originStorage[it.node].color
		nodeMap[it.node] = newNode
	}

	cloneStorage := allocator.storage

	for it := tree.Begin(); !it.Limit(); it = it.Next() {
		cloneNode := &cloneStorage[nodeMap[it.node]]
		originNode := originStorage[it.node]
		cloneNode.left = nodeMap[originNode.left]
		cloneNode.right = nodeMap[originNode.right]
		cloneNode.parent = nodeMap[originNode.parent]
	}

	clone.root = nodeMap[tree.root]
	clone.count = tree.count

	return clone
}

// CloneShallow performs a shallow copy of the tree - the nodes are assumed to
// already exist in allocator, typically a Clone of the tree's own allocator.
func (tree *RBTree[T]) CloneShallow(allocator *Allocator[T]) *RBTree[T] {
	clone := *tree
	clone.allocator = allocator

	return &clone
}
