package rbtree

import (
	"errors"
	"fmt"
)

// ErrAllocatorExhausted is the panic value (wrapped) raised when an allocator
// cannot hand out another node.
var ErrAllocatorExhausted = errors.New("rbtree allocator exhausted")

// maxHandle is the largest handle a node may occupy. The two values above it
// are reserved for the end and rend sentinels.
const maxHandle = rendNode - 1

// Allocator is the arena that owns the nodes of one or more trees.
//
// Node handles are indices into the arena and never move, which is what keeps
// iterators valid while other nodes are inserted or erased. Slot 0 is the nil
// sentinel and is never handed out.
type Allocator[T any] struct {
	storage []node[T]
	gaps    []uint32

	// Limit caps the number of live nodes. Zero means the handle space is
	// the only bound.
	Limit int
}

// NewAllocator creates a new allocator for tree nodes.
func NewAllocator[T any]() *Allocator[T] {
	return &Allocator[T]{storage: []node[T]{}, gaps: []uint32{}}
}

// Size returns the number of slots in the arena, including the reserved one
// and the recycled gaps.
func (allocator *Allocator[T]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of slots that are not free, including the reserved
// nil slot once the arena has been touched.
func (allocator *Allocator[T]) Used() int {
	return len(allocator.storage) - len(allocator.gaps)
}

// MaxSize returns the maximum number of nodes this allocator can hold.
func (allocator *Allocator[T]) MaxSize() int {
	if allocator.Limit > 0 {
		return allocator.Limit
	}

	return int(maxHandle)
}

// Clone copies an existing allocator, slot for slot. Trees bound to the
// original can be re-bound to the copy with Tree.CloneShallow.
func (allocator *Allocator[T]) Clone() *Allocator[T] {
	newAllocator := &Allocator[T]{
		storage: make([]node[T], len(allocator.storage), cap(allocator.storage)),
		gaps:    make([]uint32, len(allocator.gaps)),
		Limit:   allocator.Limit,
	}
	copy(newAllocator.storage, allocator.storage)
	copy(newAllocator.gaps, allocator.gaps)

	return newAllocator
}

func (allocator *Allocator[T]) live() int {
	used := allocator.Used()
	if used > 0 {
		// Discount the reserved nil slot.
		used--
	}

	return used
}

// malloc returns a zeroed slot. It panics before touching any tree when the
// arena is full, so callers never observe a half-linked node.
func (allocator *Allocator[T]) malloc() uint32 {
	if allocator.Limit > 0 && allocator.live() >= allocator.Limit {
		panic(fmt.Errorf("%w: limit of %d nodes reached", ErrAllocatorExhausted, allocator.Limit))
	}

	if gapCount := len(allocator.gaps); gapCount > 0 {
		nodeIdx := allocator.gaps[gapCount-1]
		allocator.gaps = allocator.gaps[:gapCount-1]

		return nodeIdx
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Zero is reserved.
		allocator.storage = append(allocator.storage, node[T]{})
		nodeLen = 1
	}

	if uint64(nodeLen) > uint64(maxHandle) {
		panic(fmt.Errorf("%w: handle space of %d nodes used up", ErrAllocatorExhausted, maxHandle))
	}

	allocator.storage = append(allocator.storage, node[T]{})

	return uint32(nodeLen)
}

func (allocator *Allocator[T]) free(nodeIdx uint32) {
	if nodeIdx == nilNode {
		panic("node #0 is special and cannot be deallocated")
	}

	doAssert(int(nodeIdx) < len(allocator.storage))

	// Drop the value so the arena does not pin whatever it references.
	allocator.storage[nodeIdx] = node[T]{}
	allocator.gaps = append(allocator.gaps, nodeIdx)
}
