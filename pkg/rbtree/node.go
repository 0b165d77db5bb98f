package rbtree

import "math"

const (
	red   = false
	black = true
)

// Sentinel handles. nilNode is arena slot 0 and is never written; endNode and
// rendNode are tags that never index the arena.
const (
	nilNode  uint32 = 0
	endNode  uint32 = math.MaxUint32
	rendNode uint32 = math.MaxUint32 - 1
)

type node[T any] struct {
	value               T
	parent, left, right uint32
	color               bool // Black or red.
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}

func isNil(nodeIdx uint32) bool {
	return nodeIdx == nilNode
}

// Internal node attribute accessors.
func colorOf[T any](nodeIdx uint32, alloc []node[T]) bool {
	if nodeIdx == nilNode {
		return black
	}

	return alloc[nodeIdx].color
}

// childOf returns the left child when left is true, the right one otherwise.
func childOf[T any](nodeIdx uint32, left bool, alloc []node[T]) uint32 {
	if left {
		return alloc[nodeIdx].left
	}

	return alloc[nodeIdx].right
}

func isLeftChild[T any](nodeIdx uint32, alloc []node[T]) bool {
	parentIdx := alloc[nodeIdx].parent

	return parentIdx != nilNode && nodeIdx == alloc[parentIdx].left
}

func minimum[T any](nodeIdx uint32, alloc []node[T]) uint32 {
	if nodeIdx == nilNode {
		return nilNode
	}

	for alloc[nodeIdx].left != nilNode {
		nodeIdx = alloc[nodeIdx].left
	}

	return nodeIdx
}

func maximum[T any](nodeIdx uint32, alloc []node[T]) uint32 {
	if nodeIdx == nilNode {
		return nilNode
	}

	for alloc[nodeIdx].right != nilNode {
		nodeIdx = alloc[nodeIdx].right
	}

	return nodeIdx
}

// successor returns the next node in key order, or endNode after the maximum.
func successor[T any](nodeIdx uint32, alloc []node[T]) uint32 {
	if alloc[nodeIdx].right != nilNode {
		return minimum(alloc[nodeIdx].right, alloc)
	}

	parentIdx := alloc[nodeIdx].parent
	for parentIdx != nilNode && nodeIdx == alloc[parentIdx].right {
		nodeIdx = parentIdx
		parentIdx = alloc[parentIdx].parent
	}

	if parentIdx == nilNode {
		return endNode
	}

	return parentIdx
}

// predecessor returns the previous node in key order, or rendNode before the
// minimum.
func predecessor[T any](nodeIdx uint32, alloc []node[T]) uint32 {
	if alloc[nodeIdx].left != nilNode {
		return maximum(alloc[nodeIdx].left, alloc)
	}

	parentIdx := alloc[nodeIdx].parent
	for parentIdx != nilNode && nodeIdx == alloc[parentIdx].left {
		nodeIdx = parentIdx
		parentIdx = alloc[parentIdx].parent
	}

	if parentIdx == nilNode {
		return rendNode
	}

	return parentIdx
}
