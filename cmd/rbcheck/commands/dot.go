package commands

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordtree/pkg/rbtree"
)

const (
	dotCmdUse   = "dot [values...]"
	dotCmdShort = "Build a tree and print it as Graphviz DOT"

	flagRandom = "random"
	flagOut    = "out"

	// randomSpread scales the key range for --random so duplicates stay rare.
	randomSpread = 10
	dotFilePerm  = 0o600
)

// ErrInvalidValue is returned for a positional value that is not an integer.
var ErrInvalidValue = errors.New("invalid value")

// ErrNegativeRandom is returned for a negative --random count.
var ErrNegativeRandom = errors.New("--random must not be negative")

// NewDotCommand creates the dot subcommand.
func NewDotCommand() *cobra.Command {
	var (
		random  int
		seed    int64
		outPath string
	)

	cmd := &cobra.Command{
		Use:   dotCmdUse,
		Short: dotCmdShort,
		Long: `Insert the given integers, plus --random generated ones, into a tree and
print its shape as Graphviz DOT. Pipe the output to "dot -Tsvg" to draw it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := buildDotTree(args, random, seed)
			if err != nil {
				return err
			}

			if outPath == "" {
				return writeDot(cmd.OutOrStdout(), tree)
			}

			return writeDotFile(outPath, tree)
		},
	}

	cmd.Flags().IntVar(&random, flagRandom, 0, "number of random values to insert")
	cmd.Flags().Int64Var(&seed, flagSeed, 1, "random seed")
	cmd.Flags().StringVarP(&outPath, flagOut, "o", "", "write DOT to this file instead of stdout")

	return cmd
}

func buildDotTree(args []string, random int, seed int64) (*rbtree.RBTree[int], error) {
	if random < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeRandom, random)
	}

	tree := rbtree.NewOrdered[int]()

	for _, arg := range args {
		value, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidValue, arg)
		}

		tree.InsertUnique(value)
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible output needs a seeded generator.

	for range random {
		tree.InsertUnique(rng.Intn(random * randomSpread))
	}

	return tree, nil
}

func writeDot(w io.Writer, tree *rbtree.RBTree[int]) error {
	return tree.WriteDOT(w, strconv.Itoa)
}

func writeDotFile(path string, tree *rbtree.RBTree[int]) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, dotFilePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return writeDot(file, tree)
}
