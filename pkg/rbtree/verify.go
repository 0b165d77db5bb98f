package rbtree

import (
	"errors"
	"fmt"
)

// Invariant violations reported by Verify.
var (
	ErrRedRoot        = errors.New("root is red")
	ErrRedViolation   = errors.New("red node has a red child")
	ErrBlackHeight    = errors.New("black height mismatch")
	ErrOrderViolation = errors.New("elements out of order")
	ErrBrokenLink     = errors.New("parent link does not match child link")
	ErrSizeMismatch   = errors.New("element count mismatch")
)

// Verify checks the binary-search ordering, the red-black coloring, the
// parent links and the element count. It returns nil for a healthy tree.
func (tree *RBTree[T]) Verify() error {
	alloc := tree.storage()

	if tree.root == nilNode {
		if tree.count != 0 {
			return fmt.Errorf("%w: empty tree reports %d elements", ErrSizeMismatch, tree.count)
		}

		return nil
	}

	if alloc[tree.root].parent != nilNode {
		return fmt.Errorf("%w: root #%d has parent #%d", ErrBrokenLink, tree.root, alloc[tree.root].parent)
	}

	if alloc[tree.root].color == red {
		return ErrRedRoot
	}

	visited := 0

	_, err := tree.verifySubtree(tree.root, &visited)
	if err != nil {
		return err
	}

	if visited != tree.count {
		return fmt.Errorf("%w: reachable %d, counted %d", ErrSizeMismatch, visited, tree.count)
	}

	return tree.verifyOrder()
}

// verifySubtree returns the black height of the subtree rooted at nodeIdx.
func (tree *RBTree[T]) verifySubtree(nodeIdx uint32, visited *int) (int, error) {
	if isNil(nodeIdx) {
		return 1, nil
	}

	alloc := tree.storage()
	current := alloc[nodeIdx]
	*visited++

	for _, child := range [2]uint32{current.left, current.right} {
		if child == nilNode {
			continue
		}

		if alloc[child].parent != nodeIdx {
			return 0, fmt.Errorf("%w: node #%d points to parent #%d instead of #%d",
				ErrBrokenLink, child, alloc[child].parent, nodeIdx)
		}

		if current.color == red && alloc[child].color == red {
			return 0, fmt.Errorf("%w: nodes #%d and #%d", ErrRedViolation, nodeIdx, child)
		}
	}

	leftHeight, err := tree.verifySubtree(current.left, visited)
	if err != nil {
		return 0, err
	}

	rightHeight, err := tree.verifySubtree(current.right, visited)
	if err != nil {
		return 0, err
	}

	if leftHeight != rightHeight {
		return 0, fmt.Errorf("%w: node #%d has %d on the left and %d on the right",
			ErrBlackHeight, nodeIdx, leftHeight, rightHeight)
	}

	if current.color == black {
		leftHeight++
	}

	return leftHeight, nil
}

// verifyOrder walks the elements in order and checks that no element is
// less than its predecessor.
func (tree *RBTree[T]) verifyOrder() error {
	prev := tree.Begin()
	if prev.Limit() {
		return nil
	}

	position := 1

	for it := prev.Next(); !it.Limit(); it = it.Next() {
		if tree.less(it.Value(), prev.Value()) {
			return fmt.Errorf("%w: element %d is less than element %d", ErrOrderViolation, position, position-1)
		}

		prev = it
		position++
	}

	return nil
}
