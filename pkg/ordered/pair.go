// Package ordered provides an ordered map and an ordered set built on top of
// the rbtree engine. Both keep their keys unique and iterate in key order.
package ordered

// Pair is a key-value element stored by Map.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// MakePair builds a Pair from its parts.
func MakePair[K, V any](key K, value V) Pair[K, V] {
	return Pair[K, V]{Key: key, Value: value}
}
