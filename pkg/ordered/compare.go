package ordered

import (
	"cmp"

	"github.com/Sumatoshi-tech/ordtree/pkg/rbtree"
)

// EqualMaps reports whether both maps hold the same entries.
func EqualMaps[K, V comparable](lhs, rhs *Map[K, V]) bool {
	if lhs.Len() != rhs.Len() {
		return false
	}

	return equalRange(lhs.Begin(), rhs.Begin(), func(a, b Pair[K, V]) bool {
		return a == b
	})
}

// CompareMaps orders two maps lexicographically by their entries, comparing
// keys first and values second. It returns -1, 0 or +1.
func CompareMaps[K, V cmp.Ordered](lhs, rhs *Map[K, V]) int {
	return compareRange(lhs.Begin(), rhs.Begin(), func(a, b Pair[K, V]) int {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c
		}

		return cmp.Compare(a.Value, b.Value)
	})
}

// EqualSets reports whether both sets hold the same elements.
func EqualSets[T comparable](lhs, rhs *Set[T]) bool {
	if lhs.Len() != rhs.Len() {
		return false
	}

	return equalRange(lhs.Begin(), rhs.Begin(), func(a, b T) bool {
		return a == b
	})
}

// CompareSets orders two sets lexicographically. It returns -1, 0 or +1.
func CompareSets[T cmp.Ordered](lhs, rhs *Set[T]) int {
	return compareRange(lhs.Begin(), rhs.Begin(), cmp.Compare[T])
}

func equalRange[T any](lhs, rhs rbtree.Iterator[T], eq func(a, b T) bool) bool {
	for ; !lhs.Limit(); lhs, rhs = lhs.Next(), rhs.Next() {
		if !eq(lhs.Value(), rhs.Value()) {
			return false
		}
	}

	return true
}

func compareRange[T any](lhs, rhs rbtree.Iterator[T], compare func(a, b T) int) int {
	for ; !lhs.Limit() && !rhs.Limit(); lhs, rhs = lhs.Next(), rhs.Next() {
		if c := compare(lhs.Value(), rhs.Value()); c != 0 {
			return c
		}
	}

	switch {
	case lhs.Limit() && rhs.Limit():
		return 0
	case lhs.Limit():
		return -1
	default:
		return 1
	}
}
