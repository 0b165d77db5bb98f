package rbtree

import "errors"

// ErrSentinelDereference is the panic value raised when Value is called on an
// iterator that does not point at an element.
var ErrSentinelDereference = errors.New("rbtree: dereferencing a sentinel iterator")

// Iterator allows scanning tree elements in sort order.
//
// Iterator invalidation rule is the same as C++ std::map<>'s. That
// is, if you delete the element that an iterator points to, the
// iterator becomes invalid. For other operation types, the iterator
// remains valid.
type Iterator[T any] struct {
	tree *RBTree[T]
	node uint32
}

// Equal checks for the underlying nodes equality.
func (iter Iterator[T]) Equal(other Iterator[T]) bool {
	return iter.tree == other.tree && iter.node == other.node
}

// Limit checks if the iterator points beyond the max element in the tree.
func (iter Iterator[T]) Limit() bool {
	return iter.node == endNode
}

// NegativeLimit checks if the iterator points before the minimum element in the tree.
func (iter Iterator[T]) NegativeLimit() bool {
	return iter.node == rendNode
}

// Valid checks if the iterator points at an element.
func (iter Iterator[T]) Valid() bool {
	return iter.tree != nil && !iter.Limit() && !iter.NegativeLimit() && !isNil(iter.node)
}

// Value returns the current element.
//
// REQUIRES: iter.Valid().
func (iter Iterator[T]) Value() T {
	return *iter.Ref()
}

// Ref returns a pointer to the current element. Allows mutating the
// element (the ordering key to be changed with care!).
//
// REQUIRES: iter.Valid().
func (iter Iterator[T]) Ref() *T {
	if !iter.Valid() {
		panic(ErrSentinelDereference)
	}

	return &iter.tree.storage()[iter.node].value
}

// Next creates a new iterator that points to the successor of the current element.
//
// REQUIRES: !iter.Limit().
func (iter Iterator[T]) Next() Iterator[T] {
	doAssert(!iter.Limit())

	if iter.NegativeLimit() {
		return iter.tree.Begin()
	}

	return Iterator[T]{iter.tree, successor(iter.node, iter.tree.storage())}
}

// Prev creates a new iterator that points to the predecessor of the current
// node. Stepping back from End() yields the maximum.
//
// REQUIRES: !iter.NegativeLimit().
func (iter Iterator[T]) Prev() Iterator[T] {
	doAssert(!iter.NegativeLimit())

	if iter.Limit() {
		return iter.tree.Max()
	}

	return Iterator[T]{iter.tree, predecessor(iter.node, iter.tree.storage())}
}

// ReverseIterator walks the tree from the maximum towards the minimum. It
// points directly at its element: RBegin() is the maximum and REnd() sits
// before the minimum.
type ReverseIterator[T any] struct {
	base Iterator[T]
}

// Base returns the forward iterator pointing at the same position.
func (iter ReverseIterator[T]) Base() Iterator[T] {
	return iter.base
}

// Equal checks for the underlying nodes equality.
func (iter ReverseIterator[T]) Equal(other ReverseIterator[T]) bool {
	return iter.base.Equal(other.base)
}

// Limit checks if the iterator has moved past the minimum element.
func (iter ReverseIterator[T]) Limit() bool {
	return iter.base.NegativeLimit()
}

// Valid checks if the iterator points at an element.
func (iter ReverseIterator[T]) Valid() bool {
	return iter.base.Valid()
}

// Value returns the current element.
func (iter ReverseIterator[T]) Value() T {
	return iter.base.Value()
}

// Ref returns a pointer to the current element.
func (iter ReverseIterator[T]) Ref() *T {
	return iter.base.Ref()
}

// Next moves towards smaller elements.
func (iter ReverseIterator[T]) Next() ReverseIterator[T] {
	return ReverseIterator[T]{iter.base.Prev()}
}

// Prev moves towards larger elements.
func (iter ReverseIterator[T]) Prev() ReverseIterator[T] {
	return ReverseIterator[T]{iter.base.Next()}
}
