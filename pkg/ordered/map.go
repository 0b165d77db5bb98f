package ordered

import (
	"cmp"
	"iter"

	"github.com/Sumatoshi-tech/ordtree/pkg/rbtree"
)

// MapIterator points at a Map element.
type MapIterator[K, V any] = rbtree.Iterator[Pair[K, V]]

// Map is an ordered map with unique keys.
type Map[K, V any] struct {
	tree    *rbtree.RBTree[Pair[K, V]]
	keyLess rbtree.Compare[K]
}

// NewMap creates an empty map ordered by less. Engine options such as
// rbtree.WithAllocator are passed through.
func NewMap[K, V any](less rbtree.Compare[K], opts ...rbtree.Option[Pair[K, V]]) *Map[K, V] {
	pairLess := func(a, b Pair[K, V]) bool {
		return less(a.Key, b.Key)
	}

	return &Map[K, V]{tree: rbtree.New(pairLess, opts...), keyLess: less}
}

// NewOrderedMap creates an empty map ordered by the natural order of K.
func NewOrderedMap[K cmp.Ordered, V any](opts ...rbtree.Option[Pair[K, V]]) *Map[K, V] {
	return NewMap[K, V](rbtree.Less[K](), opts...)
}

func probe[K, V any](key K) Pair[K, V] {
	return Pair[K, V]{Key: key}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.tree.Len() }

// Empty reports whether the map has no entries.
func (m *Map[K, V]) Empty() bool { return m.tree.Empty() }

// MaxSize returns the largest number of entries the map can hold.
func (m *Map[K, V]) MaxSize() int { return m.tree.MaxSize() }

// KeyLess returns the key ordering.
func (m *Map[K, V]) KeyLess() rbtree.Compare[K] { return m.keyLess }

// ValueLess returns the ordering of entries, which compares keys only.
func (m *Map[K, V]) ValueLess() rbtree.Compare[Pair[K, V]] { return m.tree.Less() }

// Get returns the value stored under key and whether it exists.
func (m *Map[K, V]) Get(key K) (V, bool) {
	it := m.tree.Find(probe[K, V](key))
	if it.Limit() {
		var zero V

		return zero, false
	}

	return it.Value().Value, true
}

// Index returns a pointer to the value stored under key, inserting the zero
// value first when the key is missing. The pointer stays valid until the
// entry is erased.
func (m *Map[K, V]) Index(key K) *V {
	_, it := m.tree.InsertUnique(probe[K, V](key))

	return &it.Ref().Value
}

// Insert adds key with value unless the key is already present. It returns
// true and the new entry, or false and the existing entry, which keeps its
// value.
func (m *Map[K, V]) Insert(key K, value V) (bool, MapIterator[K, V]) {
	return m.tree.InsertUnique(MakePair(key, value))
}

// InsertRange inserts every pair yielded by seq. Keys already present keep
// their values.
func (m *Map[K, V]) InsertRange(seq iter.Seq2[K, V]) {
	for key, value := range seq {
		m.tree.InsertUnique(MakePair(key, value))
	}
}

// Set stores value under key, replacing any previous value. It returns the
// former value and false if the key was present.
func (m *Map[K, V]) Set(key K, value V) (V, bool) {
	added, it := m.tree.InsertUnique(MakePair(key, value))
	if added {
		var zero V

		return zero, true
	}

	entry := it.Ref()
	old := entry.Value
	entry.Value = value

	return old, false
}

// Delete removes key. Returns true iff the key was present.
func (m *Map[K, V]) Delete(key K) bool {
	return m.tree.Delete(probe[K, V](key))
}

// EraseAt removes the entry at it and returns an iterator to the next one.
func (m *Map[K, V]) EraseAt(it MapIterator[K, V]) MapIterator[K, V] {
	return m.tree.DeleteAt(it)
}

// EraseRange removes the entries in [first, last) and returns last.
func (m *Map[K, V]) EraseRange(first, last MapIterator[K, V]) MapIterator[K, V] {
	for !first.Equal(last) {
		first = m.tree.DeleteAt(first)
	}

	return last
}

// Clear removes all entries.
func (m *Map[K, V]) Clear() { m.tree.Clear() }

// Swap exchanges the contents of two maps in constant time.
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	m.tree, other.tree = other.tree, m.tree
	m.keyLess, other.keyLess = other.keyLess, m.keyLess
}

// Clone returns a deep copy of the map.
func (m *Map[K, V]) Clone() *Map[K, V] {
	return &Map[K, V]{tree: m.tree.Clone(), keyLess: m.keyLess}
}

// Find returns an iterator to the entry with key, or End().
func (m *Map[K, V]) Find(key K) MapIterator[K, V] {
	return m.tree.Find(probe[K, V](key))
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	return m.tree.Contains(probe[K, V](key))
}

// Count returns 1 if key is present and 0 otherwise.
func (m *Map[K, V]) Count(key K) int {
	if m.Contains(key) {
		return 1
	}

	return 0
}

// LowerBound returns the first entry whose key is not less than key.
func (m *Map[K, V]) LowerBound(key K) MapIterator[K, V] {
	return m.tree.LowerBound(probe[K, V](key))
}

// UpperBound returns the first entry whose key is greater than key.
func (m *Map[K, V]) UpperBound(key K) MapIterator[K, V] {
	return m.tree.UpperBound(probe[K, V](key))
}

// EqualRange returns LowerBound(key) and UpperBound(key).
func (m *Map[K, V]) EqualRange(key K) (MapIterator[K, V], MapIterator[K, V]) {
	return m.tree.EqualRange(probe[K, V](key))
}

// Begin returns an iterator to the smallest key.
func (m *Map[K, V]) Begin() MapIterator[K, V] { return m.tree.Begin() }

// End returns the past-the-last iterator.
func (m *Map[K, V]) End() MapIterator[K, V] { return m.tree.End() }

// RBegin returns a reverse iterator to the largest key.
func (m *Map[K, V]) RBegin() rbtree.ReverseIterator[Pair[K, V]] { return m.tree.RBegin() }

// REnd returns the reverse past-the-last iterator.
func (m *Map[K, V]) REnd() rbtree.ReverseIterator[Pair[K, V]] { return m.tree.REnd() }

// All yields the entries in ascending key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for entry := range m.tree.All() {
			if !yield(entry.Key, entry.Value) {
				return
			}
		}
	}
}

// Backward yields the entries in descending key order.
func (m *Map[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for entry := range m.tree.Backward() {
			if !yield(entry.Key, entry.Value) {
				return
			}
		}
	}
}

// Keys yields the keys in ascending order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for entry := range m.tree.All() {
			if !yield(entry.Key) {
				return
			}
		}
	}
}

// Values yields the values in ascending key order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for entry := range m.tree.All() {
			if !yield(entry.Value) {
				return
			}
		}
	}
}

// Tree exposes the underlying engine, e.g. for Verify or WriteDOT.
func (m *Map[K, V]) Tree() *rbtree.RBTree[Pair[K, V]] { return m.tree }
