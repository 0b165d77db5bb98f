package ordered

import (
	"cmp"
	"iter"

	"github.com/Sumatoshi-tech/ordtree/pkg/rbtree"
)

// Set is an ordered set of unique elements.
type Set[T any] struct {
	tree *rbtree.RBTree[T]
}

// NewSet creates an empty set ordered by less.
func NewSet[T any](less rbtree.Compare[T], opts ...rbtree.Option[T]) *Set[T] {
	return &Set[T]{tree: rbtree.New(less, opts...)}
}

// NewOrderedSet creates an empty set ordered by the natural order of T.
func NewOrderedSet[T cmp.Ordered](opts ...rbtree.Option[T]) *Set[T] {
	return NewSet(rbtree.Less[T](), opts...)
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return s.tree.Len() }

// Empty reports whether the set has no elements.
func (s *Set[T]) Empty() bool { return s.tree.Empty() }

// MaxSize returns the largest number of elements the set can hold.
func (s *Set[T]) MaxSize() int { return s.tree.MaxSize() }

// KeyLess returns the element ordering.
func (s *Set[T]) KeyLess() rbtree.Compare[T] { return s.tree.Less() }

// ValueLess is the same ordering as KeyLess.
func (s *Set[T]) ValueLess() rbtree.Compare[T] { return s.tree.Less() }

// Insert adds value unless an equivalent element is present. It returns true
// and the new element, or false and the existing one.
func (s *Set[T]) Insert(value T) (bool, rbtree.Iterator[T]) {
	return s.tree.InsertUnique(value)
}

// InsertRange inserts every value yielded by seq.
func (s *Set[T]) InsertRange(seq iter.Seq[T]) {
	for value := range seq {
		s.tree.InsertUnique(value)
	}
}

// Delete removes value. Returns true iff it was present.
func (s *Set[T]) Delete(value T) bool {
	return s.tree.Delete(value)
}

// EraseAt removes the element at it and returns an iterator to the next one.
func (s *Set[T]) EraseAt(it rbtree.Iterator[T]) rbtree.Iterator[T] {
	return s.tree.DeleteAt(it)
}

// EraseRange removes the elements in [first, last) and returns last.
func (s *Set[T]) EraseRange(first, last rbtree.Iterator[T]) rbtree.Iterator[T] {
	for !first.Equal(last) {
		first = s.tree.DeleteAt(first)
	}

	return last
}

// Clear removes all elements.
func (s *Set[T]) Clear() { s.tree.Clear() }

// Swap exchanges the contents of two sets in constant time.
func (s *Set[T]) Swap(other *Set[T]) {
	s.tree, other.tree = other.tree, s.tree
}

// Clone returns a deep copy of the set.
func (s *Set[T]) Clone() *Set[T] {
	return &Set[T]{tree: s.tree.Clone()}
}

// Find returns an iterator to the element equivalent to value, or End().
func (s *Set[T]) Find(value T) rbtree.Iterator[T] { return s.tree.Find(value) }

// Contains reports whether value is present.
func (s *Set[T]) Contains(value T) bool { return s.tree.Contains(value) }

// Count returns 1 if value is present and 0 otherwise.
func (s *Set[T]) Count(value T) int {
	if s.tree.Contains(value) {
		return 1
	}

	return 0
}

// LowerBound returns the first element not less than value.
func (s *Set[T]) LowerBound(value T) rbtree.Iterator[T] { return s.tree.LowerBound(value) }

// UpperBound returns the first element greater than value.
func (s *Set[T]) UpperBound(value T) rbtree.Iterator[T] { return s.tree.UpperBound(value) }

// EqualRange returns LowerBound(value) and UpperBound(value).
func (s *Set[T]) EqualRange(value T) (rbtree.Iterator[T], rbtree.Iterator[T]) {
	return s.tree.EqualRange(value)
}

// Begin returns an iterator to the smallest element.
func (s *Set[T]) Begin() rbtree.Iterator[T] { return s.tree.Begin() }

// End returns the past-the-last iterator.
func (s *Set[T]) End() rbtree.Iterator[T] { return s.tree.End() }

// RBegin returns a reverse iterator to the largest element.
func (s *Set[T]) RBegin() rbtree.ReverseIterator[T] { return s.tree.RBegin() }

// REnd returns the reverse past-the-last iterator.
func (s *Set[T]) REnd() rbtree.ReverseIterator[T] { return s.tree.REnd() }

// All yields the elements in ascending order.
func (s *Set[T]) All() iter.Seq[T] { return s.tree.All() }

// Backward yields the elements in descending order.
func (s *Set[T]) Backward() iter.Seq[T] { return s.tree.Backward() }

// Tree exposes the underlying engine.
func (s *Set[T]) Tree() *rbtree.RBTree[T] { return s.tree }
