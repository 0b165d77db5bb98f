package rbtree //nolint:testpackage // tests require access to unexported fields (storage, gaps, root, etc.)

import (
	"math/rand"
	"slices"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Create a tree storing a set of integers.
func testNewIntSet() *RBTree[int] {
	return NewOrdered[int]()
}

func testAssert(tb testing.TB, condition bool, message string) {
	tb.Helper()
	assert.True(tb, condition, message)
}

func boolInsert(tree *RBTree[int], item int) bool {
	status, _ := tree.InsertUnique(item)

	return status
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, tree.Len() == 0, "len!=0")
	testAssert(t, tree.Empty(), "empty")
	testAssert(t, tree.Max().NegativeLimit(), "neglimit")
	testAssert(t, tree.Min().Limit(), "limit")
	testAssert(t, tree.LowerBound(10).Limit(), "Not empty")
	testAssert(t, tree.UpperBound(10).Limit(), "Not empty")
	testAssert(t, tree.Find(10).Limit(), "Not empty")
	testAssert(t, tree.End().Equal(tree.Begin()), "iter")
	testAssert(t, tree.REnd().Equal(tree.RBegin()), "reverse iter")
	assert.Equal(t, 0, tree.Height())
	assert.Equal(t, 0, tree.BlackHeight())
	require.NoError(t, tree.Verify())
}

func TestBounds(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for _, value := range []int{10, 20, 30, 40, 50} {
		testAssert(t, boolInsert(tree, value), "insert")
	}

	assert.Equal(t, 30, tree.LowerBound(25).Value())
	assert.Equal(t, 30, tree.UpperBound(25).Value())
	assert.Equal(t, 30, tree.LowerBound(30).Value())
	assert.Equal(t, 40, tree.UpperBound(30).Value())
	assert.Equal(t, 10, tree.LowerBound(0).Value())
	testAssert(t, tree.LowerBound(51).Limit(), "LowerBound 51")
	testAssert(t, tree.UpperBound(50).Limit(), "UpperBound 50")

	first, last := tree.EqualRange(40)
	assert.Equal(t, 40, first.Value())
	assert.Equal(t, 50, last.Value())

	first, last = tree.EqualRange(45)
	testAssert(t, first.Equal(last), "EqualRange 45")
}

func TestFind(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "insert1")
	assert.Equal(t, 10, tree.Find(10).Value(), "Find 10")
	testAssert(t, tree.Find(9).Limit(), "Find 9")
	testAssert(t, tree.Find(11).Limit(), "Find 11")
	testAssert(t, tree.Contains(10), "Contains 10")
	testAssert(t, !tree.Contains(11), "Contains 11")
}

func TestInsertUnique(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	inserted, first := tree.InsertUnique(42)
	require.True(t, inserted)
	assert.Equal(t, 1, tree.Len())

	inserted, second := tree.InsertUnique(42)
	require.False(t, inserted)
	testAssert(t, first.Equal(second), "same node")
	assert.Equal(t, 1, tree.Len())
}

func TestInsertDuplicates(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for _, value := range []int{5, 3, 5, 8, 5} {
		tree.Insert(value)
	}

	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, 3, tree.Count(5))
	assert.Equal(t, 0, tree.Count(4))
	assert.Equal(t, []int{3, 5, 5, 5, 8}, slices.Collect(tree.All()))
	require.NoError(t, tree.Verify())

	testAssert(t, tree.Delete(5), "delete one 5")
	assert.Equal(t, 2, tree.Count(5))
	require.NoError(t, tree.Verify())
}

func TestDelete(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, !tree.Delete(10), "del")
	testAssert(t, tree.Len() == 0, "dellen")
	testAssert(t, boolInsert(tree, 10), "ins")
	testAssert(t, tree.Delete(10), "del")
	testAssert(t, tree.Len() == 0, "dellen")

	// Delete must not remove the successor when the value is missing.
	testAssert(t, boolInsert(tree, 10), "ins")
	testAssert(t, !tree.Delete(9), "del")
	testAssert(t, tree.Len() == 1, "dellen")
}

func TestDeleteAscendingInserts(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for value := 1; value <= 7; value++ {
		boolInsert(tree, value)
	}

	require.NoError(t, tree.Verify())
	testAssert(t, tree.Delete(1), "delete 1")
	require.NoError(t, tree.Verify())
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7}, slices.Collect(tree.All()))
}

func TestIteratorStability(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for _, value := range []int{5, 3, 8, 1, 4, 7, 9} {
		boolInsert(tree, value)
	}

	iter := tree.Find(7)
	handle := iter.node

	testAssert(t, tree.Delete(3), "delete 3")
	testAssert(t, tree.Delete(9), "delete 9")

	assert.Equal(t, handle, iter.node)
	assert.Equal(t, 7, iter.Value())
	assert.Equal(t, 8, iter.Next().Value())
	assert.Equal(t, 5, iter.Prev().Value())
	require.NoError(t, tree.Verify())
}

func TestDeleteAt(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	boolInsert(tree, 5)
	boolInsert(tree, 10)
	boolInsert(tree, 15)

	// Find middle element and delete via iterator.
	next := tree.DeleteAt(tree.Find(10))
	assert.Equal(t, 15, next.Value())
	assert.Equal(t, 2, tree.Len())
	testAssert(t, !tree.Contains(10), "10 erased")

	// Delete last element via iterator.
	next = tree.DeleteAt(tree.Max())
	testAssert(t, next.Limit(), "after max")
	assert.Equal(t, 1, tree.Len())

	next = tree.DeleteAt(tree.Min())
	testAssert(t, next.Limit(), "after last")
	testAssert(t, tree.Empty(), "empty")

	assert.Panics(t, func() { tree.DeleteAt(tree.End()) })
}

func iterToString(iter Iterator[int]) string {
	result := ""

	for ; !iter.Limit(); iter = iter.Next() {
		if result != "" {
			result += ","
		}

		result += strconv.Itoa(iter.Value())
	}

	return result
}

func reverseIterToString(iter Iterator[int]) string {
	result := ""

	for ; !iter.NegativeLimit(); iter = iter.Prev() {
		if result != "" {
			result += ","
		}

		result += strconv.Itoa(iter.Value())
	}

	return result
}

func TestIterator(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()

	for idx := 0; idx < 10; idx += 2 {
		boolInsert(tree, idx)
	}

	assert.Equal(t, "4,6,8", iterToString(tree.LowerBound(3)))
	assert.Equal(t, "4,6,8", iterToString(tree.LowerBound(4)))
	assert.Equal(t, "6,8", iterToString(tree.UpperBound(4)))
	assert.Equal(t, "8", iterToString(tree.LowerBound(8)))
	assert.Empty(t, iterToString(tree.LowerBound(9)))
	assert.Equal(t, "2,0", reverseIterToString(tree.Find(2)))
	assert.Equal(t, "8,6,4,2,0", reverseIterToString(tree.End().Prev()))
	assert.Equal(t, "0", reverseIterToString(tree.Find(0)))
	testAssert(t, tree.Max().Next().Limit(), "max+1")
	testAssert(t, tree.Min().Prev().NegativeLimit(), "min-1")
	assert.Equal(t, 0, tree.REnd().Base().Next().Value())
}

func TestIteratorSentinelDereference(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	boolInsert(tree, 1)

	assert.PanicsWithValue(t, ErrSentinelDereference, func() { tree.End().Value() })
	assert.PanicsWithValue(t, ErrSentinelDereference, func() { tree.REnd().Value() })
	assert.PanicsWithValue(t, ErrSentinelDereference, func() { Iterator[int]{}.Value() })
	assert.Panics(t, func() { tree.End().Next() })
	assert.Panics(t, func() { tree.REnd().Base().Prev() })
	testAssert(t, !Iterator[int]{}.Valid(), "zero iterator")
}

func TestReverseIterator(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for _, value := range []int{3, 1, 2} {
		boolInsert(tree, value)
	}

	var values []int

	for iter := tree.RBegin(); !iter.Equal(tree.REnd()); iter = iter.Next() {
		values = append(values, iter.Value())
	}

	assert.Equal(t, []int{3, 2, 1}, values)
	assert.Equal(t, []int{3, 2, 1}, slices.Collect(tree.Backward()))
	assert.Equal(t, 1, tree.REnd().Prev().Value())
	testAssert(t, tree.RBegin().Base().Equal(tree.Max()), "rbegin base")
	testAssert(t, tree.RBegin().Valid(), "rbegin valid")
	testAssert(t, tree.REnd().Limit(), "rend limit")
}

func TestIteratorRefMutation(t *testing.T) {
	t.Parallel()

	type entry struct {
		key   int
		value string
	}

	tree := New(func(a, b entry) bool { return a.key < b.key })
	tree.Insert(entry{key: 1, value: "one"})

	tree.Find(entry{key: 1}).Ref().value = "uno"

	assert.Equal(t, "uno", tree.Find(entry{key: 1}).Value().value)
}

func TestCustomComparator(t *testing.T) {
	t.Parallel()

	tree := New(func(a, b string) bool { return a > b })
	for _, value := range []string{"b", "d", "a", "c"} {
		tree.Insert(value)
	}

	assert.Equal(t, []string{"d", "c", "b", "a"}, slices.Collect(tree.All()))
	assert.Equal(t, "b", tree.LowerBound("bb").Value())
	require.NoError(t, tree.Verify())
}

func TestBreakEarly(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for idx := range 10 {
		boolInsert(tree, idx)
	}

	var seen []int

	for value := range tree.All() {
		if value == 3 {
			break
		}

		seen = append(seen, value)
	}

	assert.Equal(t, []int{0, 1, 2}, seen)

	seen = seen[:0]

	for value := range tree.Backward() {
		if value == 7 {
			break
		}

		seen = append(seen, value)
	}

	assert.Equal(t, []int{9, 8}, seen)
}

// Randomized tests.

// oracle provides an interface similar to rbtree, but stores
// data in a sorted array.
type oracle struct {
	data []int
}

func newOracle() *oracle {
	return &oracle{data: make([]int, 0)}
}

func (o *oracle) Len() int {
	return len(o.data)
}

func (o *oracle) Insert(key int) bool {
	idx := sort.SearchInts(o.data, key)
	if idx < len(o.data) && o.data[idx] == key {
		return false
	}

	o.data = slices.Insert(o.data, idx, key)

	return true
}

func (o *oracle) RandomExistingKey(rng *rand.Rand) int {
	index := rng.Int31n(int32(len(o.data)))

	return o.data[index]
}

func (o *oracle) Delete(key int) bool {
	idx := sort.SearchInts(o.data, key)
	if idx == len(o.data) || o.data[idx] != key {
		return false
	}

	o.data = slices.Delete(o.data, idx, idx+1)

	return true
}

// LowerBound returns the index of the first element >= key.
func (o *oracle) LowerBound(key int) int {
	return sort.SearchInts(o.data, key)
}

// UpperBound returns the index of the first element > key.
func (o *oracle) UpperBound(key int) int {
	return sort.SearchInts(o.data, key+1)
}

// compareContents checks that walking forward and backward from titer
// reproduces the oracle data around index.
func compareContents(tb testing.TB, orc *oracle, index int, titer Iterator[int]) {
	tb.Helper()

	if index == len(orc.data) {
		testAssert(tb, titer.Limit(), "end")
	} else {
		require.True(tb, titer.Valid(), "iterator at %d must be valid", index)
		assert.Equal(tb, orc.data[index], titer.Value())
	}

	forward := make([]int, 0, len(orc.data)-index)
	for it := titer; !it.Limit(); it = it.Next() {
		forward = append(forward, it.Value())
	}

	assert.Equal(tb, orc.data[index:], forward)

	backward := make([]int, 0, index)
	for it := titer; ; {
		it = it.Prev()
		if it.NegativeLimit() {
			break
		}

		backward = append(backward, it.Value())
	}

	slices.Reverse(backward)
	assert.Equal(tb, orc.data[:index], backward)
}

func compareContentsFull(tb testing.TB, orc *oracle, tree *RBTree[int]) {
	tb.Helper()

	require.NoError(tb, tree.Verify())
	assert.Equal(tb, orc.Len(), tree.Len())
	compareContents(tb, orc, 0, tree.Begin())
}

func TestRandomized(t *testing.T) {
	t.Parallel()

	const numKeys = 1000

	orc := newOracle()
	tree := testNewIntSet()
	rng := rand.New(rand.NewSource(0))

	for range 10000 {
		op := rng.Int31n(100)

		switch {
		case op < 50:
			key := int(rng.Int31n(numKeys))
			assert.Equal(t, orc.Insert(key), boolInsert(tree, key))
			compareContentsFull(t, orc, tree)
		case op < 90 && orc.Len() > 0:
			key := orc.RandomExistingKey(rng)
			orc.Delete(key)

			if !tree.Delete(key) {
				t.Fatal("DeleteExisting", key)
			}

			compareContentsFull(t, orc, tree)
		case op < 95:
			key := int(rng.Int31n(numKeys))
			compareContents(t, orc, orc.LowerBound(key), tree.LowerBound(key))
		default:
			key := int(rng.Int31n(numKeys))
			compareContents(t, orc, orc.UpperBound(key), tree.UpperBound(key))
		}
	}
}

func TestRandomizedFind(t *testing.T) {
	t.Parallel()

	const numKeys = 500

	tree := testNewIntSet()
	rng := rand.New(rand.NewSource(1))
	inserted := map[int]bool{}

	for range numKeys {
		key := int(rng.Int31n(numKeys * 2))
		boolInsert(tree, key)
		inserted[key] = true
	}

	for key := range numKeys * 2 {
		iter := tree.Find(key)
		if inserted[key] {
			require.True(t, iter.Valid(), "key %d", key)
			assert.Equal(t, key, iter.Value())
		} else {
			testAssert(t, iter.Limit(), "missing key "+strconv.Itoa(key))
		}
	}

	deleted := 0

	for key := range inserted {
		if key%3 == 0 {
			testAssert(t, tree.Delete(key), "delete")

			deleted++
		}
	}

	assert.Equal(t, len(inserted)-deleted, tree.Len())
	require.NoError(t, tree.Verify())
}

func TestHeightIsLogarithmic(t *testing.T) {
	t.Parallel()

	const numKeys = 1 << 12

	tree := testNewIntSet()
	for key := range numKeys {
		boolInsert(tree, key)
	}

	// A red-black tree is at most 2*log2(n+1) high.
	assert.LessOrEqual(t, tree.Height(), 2*13)
	assert.GreaterOrEqual(t, tree.Height(), 12)
	assert.Positive(t, tree.BlackHeight())
	require.NoError(t, tree.Verify())
}

func TestClear(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	tree := New(Less[int](), WithAllocator(alloc))

	for idx := range 10 {
		tree.Insert(idx)
	}

	assert.Equal(t, 11, alloc.Used())
	tree.Clear()
	assert.Equal(t, 1, alloc.Used())
	assert.Equal(t, 11, alloc.Size())
	testAssert(t, tree.Empty(), "empty")
	require.NoError(t, tree.Verify())

	// Freed slots are recycled.
	tree.Insert(100)
	assert.Equal(t, 11, alloc.Size())
	assert.Equal(t, 2, alloc.Used())
}

func TestSharedAllocator(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	evens := New(Less[int](), WithAllocator(alloc))
	odds := New(Less[int](), WithAllocator(alloc))

	for idx := range 20 {
		if idx%2 == 0 {
			evens.Insert(idx)
		} else {
			odds.Insert(idx)
		}
	}

	assert.Equal(t, 21, alloc.Used())

	evens.Clear()
	assert.Equal(t, 11, alloc.Used())
	assert.Equal(t, []int{1, 3, 5, 7, 9, 11, 13, 15, 17, 19}, slices.Collect(odds.All()))
	require.NoError(t, odds.Verify())
}

func TestAllocatorLimit(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	alloc.Limit = 3
	tree := New(Less[int](), WithAllocator(alloc))

	for _, value := range []int{1, 2, 3} {
		tree.Insert(value)
	}

	assert.Equal(t, 3, tree.MaxSize())
	assert.PanicsWithError(t, "rbtree allocator exhausted: limit of 3 nodes reached", func() { tree.Insert(4) })

	// The failed insert left no trace.
	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, []int{1, 2, 3}, slices.Collect(tree.All()))
	require.NoError(t, tree.Verify())

	// Looking up an existing value does not allocate.
	inserted, _ := tree.InsertUnique(2)
	assert.False(t, inserted)

	tree.Delete(1)
	assert.NotPanics(t, func() { tree.Insert(4) })
}

func TestMaxSizeUnbounded(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	assert.Equal(t, int(maxHandle), tree.MaxSize())
}

func TestAllocatorFreeZero(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	alloc.malloc()
	assert.Panics(t, func() { alloc.free(0) })
}

func TestCloneShallow(t *testing.T) {
	t.Parallel()

	alloc1 := NewAllocator[int]()
	alloc1.malloc()

	tree := New(Less[int](), WithAllocator(alloc1))
	tree.Insert(7)
	tree.Insert(8)
	tree.Delete(8)

	assert.Equal(t, []node[int]{{}, {}, {color: black, value: 7}, {}}, alloc1.storage)
	assert.Equal(t, uint32(2), tree.root)

	alloc2 := alloc1.Clone()
	clone := tree.CloneShallow(alloc2)

	assert.Equal(t, []node[int]{{}, {}, {color: black, value: 7}, {}}, alloc2.storage)
	assert.Equal(t, uint32(2), clone.root)
	assert.Equal(t, 4, alloc2.Size())

	tree.Insert(10)

	alloc3 := alloc1.Clone()
	clone = tree.CloneShallow(alloc3)

	assert.Equal(t, []node[int]{
		{}, {},
		{right: 3, color: black, value: 7},
		{parent: 2, color: red, value: 10}}, alloc3.storage)
	assert.Equal(t, []int{7, 10}, slices.Collect(clone.All()))
	assert.Equal(t, 4, alloc3.Size())
	assert.Equal(t, 4, alloc2.Size())
}

func TestCloneDeep(t *testing.T) {
	t.Parallel()

	alloc1 := NewAllocator[int]()
	alloc1.malloc()

	tree := New(Less[int](), WithAllocator(alloc1))
	tree.Insert(7)

	assert.Equal(t, []node[int]{{}, {}, {color: black, value: 7}}, alloc1.storage)

	alloc2 := NewAllocator[int]()
	clone := tree.CloneWith(alloc2)

	assert.Equal(t, []node[int]{{}, {color: black, value: 7}}, alloc2.storage)
	assert.Equal(t, uint32(1), clone.root)
	assert.Equal(t, 2, alloc2.Size())

	tree.Insert(10)

	alloc2 = NewAllocator[int]()
	clone = tree.CloneWith(alloc2)

	assert.Equal(t, []node[int]{
		{},
		{right: 2, color: black, value: 7},
		{parent: 1, color: red, value: 10}}, alloc2.storage)
	assert.Equal(t, 2, clone.Len())
	assert.Equal(t, 3, alloc2.Size())
}

func TestCloneIndependence(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for idx := range 50 {
		boolInsert(tree, idx)
	}

	clone := tree.Clone()
	tree.Delete(10)
	clone.Insert(100)

	assert.Equal(t, 49, tree.Len())
	assert.Equal(t, 51, clone.Len())
	testAssert(t, clone.Contains(10), "clone keeps 10")
	testAssert(t, !tree.Contains(100), "tree misses 100")
	require.NoError(t, tree.Verify())
	require.NoError(t, clone.Verify())
}

// TestRBTreeAllocator tests the Allocator() accessor method.
func TestRBTreeAllocator(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	tree := New(Less[int](), WithAllocator(alloc))

	// Verify Allocator() returns the same allocator.
	assert.Same(t, alloc, tree.Allocator())

	tree.Insert(5)
	tree.Insert(10)
	assert.Same(t, alloc, tree.Allocator())
	assert.Equal(t, 3, alloc.Used()) // 1 reserved + 2 nodes.
	assert.True(t, tree.Less()(5, 10))
}

func TestVerifyDetectsCorruption(t *testing.T) {
	t.Parallel()

	build := func(values ...int) *RBTree[int] {
		tree := testNewIntSet()
		for _, value := range values {
			boolInsert(tree, value)
		}

		require.NoError(t, tree.Verify())

		return tree
	}

	tree := build(1, 2, 3)
	tree.storage()[tree.root].color = red
	require.ErrorIs(t, tree.Verify(), ErrRedRoot)

	tree = build(1, 2, 3, 4)
	tree.storage()[tree.find(3)].color = red
	require.ErrorIs(t, tree.Verify(), ErrRedViolation)

	tree = build(1, 2, 3)
	tree.storage()[tree.find(1)].color = black
	require.ErrorIs(t, tree.Verify(), ErrBlackHeight)

	tree = build(1, 2, 3)
	one := tree.find(1)
	tree.storage()[one].parent = one
	require.ErrorIs(t, tree.Verify(), ErrBrokenLink)

	tree = build(1, 2, 3)
	tree.count++
	require.ErrorIs(t, tree.Verify(), ErrSizeMismatch)

	tree = build(1, 2, 3)
	alloc := tree.storage()
	lo, hi := tree.find(1), tree.find(3)
	alloc[lo].value, alloc[hi].value = alloc[hi].value, alloc[lo].value
	require.ErrorIs(t, tree.Verify(), ErrOrderViolation)
}

func TestWriteDOT(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for _, value := range []int{2, 1, 3} {
		boolInsert(tree, value)
	}

	var out strings.Builder

	require.NoError(t, tree.WriteDOT(&out, strconv.Itoa))

	dot := out.String()
	assert.True(t, strings.HasPrefix(dot, "digraph {\n"))
	assert.True(t, strings.HasSuffix(dot, "}\n"))
	assert.Contains(t, dot, `Node1[label="2", fillcolor="black"`)
	assert.Contains(t, dot, `tooltip="The parent node is nil"`)
	assert.Contains(t, dot, `Node2[label="1", fillcolor="red"`)
	assert.Contains(t, dot, `tooltip="The parent node is 2"`)
	assert.Equal(t, 6, strings.Count(dot, "->"))
	assert.Equal(t, 4, strings.Count(dot, `label="NIL"`))
}

func TestWriteDOTEmpty(t *testing.T) {
	t.Parallel()

	var out strings.Builder

	require.NoError(t, testNewIntSet().WriteDOT(&out, strconv.Itoa))
	assert.Equal(t, 1, strings.Count(out.String(), `label="NIL"`))
	assert.NotContains(t, out.String(), "->")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func TestWriteDOTError(t *testing.T) {
	t.Parallel()

	err := testNewIntSet().WriteDOT(failingWriter{}, strconv.Itoa)
	require.ErrorIs(t, err, assert.AnError)
}
