package rbtree

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteDOT renders the tree as a Graphviz digraph. Elements are drawn as
// filled circles in their node color; nil leaves are drawn as small black
// records so that the black height is visible. label formats an element.
func (tree *RBTree[T]) WriteDOT(writer io.Writer, label func(T) string) error {
	var builder strings.Builder

	builder.WriteString("digraph {\n")

	id := 1
	tree.dotSubtree(&builder, tree.root, &id, label)

	builder.WriteString("}\n")

	_, err := io.WriteString(writer, builder.String())
	if err != nil {
		return fmt.Errorf("write dot: %w", err)
	}

	return nil
}

func (tree *RBTree[T]) dotSubtree(builder *strings.Builder, nodeIdx uint32, id *int, label func(T) string) int {
	myID := *id
	*id++

	if nodeIdx == nilNode {
		fmt.Fprintf(builder,
			"\tNode%d[label=\"NIL\", fillcolor=\"black\", color=\"black\", shape=record, fixedsize=true, "+
				"fontcolor=\"white\", style=filled, width=0.3, height=0.2, fontsize=10]\n", myID)

		return myID
	}

	alloc := tree.storage()
	current := alloc[nodeIdx]

	fill := "black"
	if current.color == red {
		fill = "red"
	}

	parentLabel := "nil"
	if current.parent != nilNode {
		parentLabel = label(alloc[current.parent].value)
	}

	fmt.Fprintf(builder,
		"\tNode%d[label=%s, fillcolor=\"%s\", color=\"black\", shape=circle, fixedsize=true, "+
			"fontcolor=\"white\", tooltip=%s, style=filled, fontsize=20]\n",
		myID, strconv.Quote(label(current.value)), fill, strconv.Quote("The parent node is "+parentLabel))

	leftID := tree.dotSubtree(builder, current.left, id, label)
	rightID := tree.dotSubtree(builder, current.right, id, label)

	fmt.Fprintf(builder, "\tNode%d -> Node%d[weight=10]\n", myID, leftID)
	fmt.Fprintf(builder, "\tNode%d -> Node%d[weight=10]\n", myID, rightID)

	return myID
}
