// Package workload drives the ordered containers with a randomized operation
// mix and cross-checks every answer against independent B-tree references
// and the engine's invariant verifier.
package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	gbtree "github.com/google/btree"
	tbtree "github.com/tidwall/btree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/ordtree/internal/observability"
	"github.com/Sumatoshi-tech/ordtree/pkg/ordered"
	"github.com/Sumatoshi-tech/ordtree/pkg/rbtree"
)

// Operation names, also used as metric and report labels.
const (
	OpInsert     = "insert"
	OpErase      = "erase"
	OpFind       = "find"
	OpLowerBound = "lower_bound"
	OpUpperBound = "upper_bound"
	OpAssign     = "assign"
	OpVerify     = "verify"
	OpContents   = "contents"
)

const (
	tracerName = "github.com/Sumatoshi-tech/ordtree/internal/workload"

	// referenceDegree is the fan-out of both B-tree references.
	referenceDegree = 32

	// maxMismatches stops a run that is clearly broken.
	maxMismatches = 16

	// cancelCheckInterval is how many operations run between context checks.
	cancelCheckInterval = 1024

	// Cumulative percentages of the operation mix.
	mixInsert     = 35
	mixErase      = 60
	mixFind       = 75
	mixLowerBound = 85
	mixUpperBound = 95
)

// ErrInvalidOptions is returned for non-positive operation or key counts.
var ErrInvalidOptions = errors.New("invalid workload options")

// Options configures a run.
type Options struct {
	Ops         int
	Keys        int
	Seed        int64
	VerifyEvery int

	// NodeLimit caps the set's allocator; inserts beyond it must fail
	// without changing the tree.
	NodeLimit int
}

// Mismatch describes one disagreement between the engine and a reference.
type Mismatch struct {
	Step   int    `yaml:"step"`
	Op     string `yaml:"op"`
	Key    int    `yaml:"key"`
	Detail string `yaml:"detail"`
}

// Report summarizes a run.
type Report struct {
	Seed          int64          `yaml:"seed"`
	Ops           int            `yaml:"ops"`
	Keys          int            `yaml:"keys"`
	Operations    map[string]int `yaml:"operations"`
	Verifications int            `yaml:"verifications"`
	Exhausted     int            `yaml:"exhausted_inserts"`
	FinalSize     int            `yaml:"final_size"`
	Height        int            `yaml:"height"`
	BlackHeight   int            `yaml:"black_height"`
	ArenaSlots    int            `yaml:"arena_slots"`
	Duration      time.Duration  `yaml:"duration"`
	Mismatches    []Mismatch     `yaml:"mismatches,omitempty"`
}

// Passed reports whether the run found no disagreement.
func (report *Report) Passed() bool {
	return len(report.Mismatches) == 0
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(runner *Runner) { runner.logger = logger }
}

// WithTracer sets the tracer. The default is the global provider's tracer.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(runner *Runner) { runner.tracer = tracer }
}

// WithMetrics sets the metric instruments. The default records nothing.
func WithMetrics(metrics *observability.WorkloadMetrics) RunnerOption {
	return func(runner *Runner) { runner.metrics = metrics }
}

// Runner executes randomized workloads.
type Runner struct {
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.WorkloadMetrics
}

// NewRunner creates a runner for opts.
func NewRunner(opts Options, runnerOpts ...RunnerOption) *Runner {
	runner := &Runner{
		opts:   opts,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}

	for _, opt := range runnerOpts {
		opt(runner)
	}

	return runner
}

// state bundles the containers under test with their references.
type state struct {
	set    *ordered.Set[int]
	setRef *gbtree.BTreeG[int]
	dict   *ordered.Map[int, int]
	mapRef *tbtree.BTreeG[ordered.Pair[int, int]]
	report *Report
}

func (st *state) mismatch(step int, op string, key int, format string, args ...any) {
	st.report.Mismatches = append(st.report.Mismatches, Mismatch{
		Step: step, Op: op, Key: key, Detail: fmt.Sprintf(format, args...),
	})
}

// Run executes the workload. The returned error is non-nil only when the run
// could not complete (bad options, cancellation); disagreements are listed
// in the report.
func (runner *Runner) Run(ctx context.Context) (*Report, error) {
	opts := runner.opts
	if opts.Ops <= 0 || opts.Keys <= 0 {
		return nil, fmt.Errorf("%w: ops=%d keys=%d", ErrInvalidOptions, opts.Ops, opts.Keys)
	}

	ctx, span := runner.tracer.Start(ctx, "workload.Run", trace.WithAttributes(
		attribute.Int("workload.ops", opts.Ops),
		attribute.Int("workload.keys", opts.Keys),
		attribute.Int64("workload.seed", opts.Seed),
	))
	defer span.End()

	started := time.Now()
	alloc := rbtree.NewAllocator[int]()
	alloc.Limit = opts.NodeLimit

	st := &state{
		set:    ordered.NewOrderedSet(rbtree.WithAllocator(alloc)),
		setRef: newSetReference(),
		dict:   ordered.NewOrderedMap[int, int](),
		mapRef: newMapReference(),
		report: &Report{Seed: opts.Seed, Ops: opts.Ops, Keys: opts.Keys, Operations: map[string]int{}},
	}

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // reproducible workloads need a seeded generator.

	for step := range opts.Ops {
		if step%cancelCheckInterval == 0 && ctx.Err() != nil {
			span.SetStatus(codes.Error, "canceled")

			return nil, fmt.Errorf("workload canceled at step %d: %w", step, ctx.Err())
		}

		runner.step(ctx, st, step, rng)

		if opts.VerifyEvery > 0 && (step+1)%opts.VerifyEvery == 0 {
			runner.verify(ctx, st, step)
		}

		if len(st.report.Mismatches) >= maxMismatches {
			runner.logger.WarnContext(ctx, "too many mismatches, stopping early", slog.Int("step", step))

			break
		}
	}

	runner.verify(ctx, st, opts.Ops)
	runner.compareContents(st, opts.Ops)

	tree := st.set.Tree()
	st.report.FinalSize = st.set.Len()
	st.report.Height = tree.Height()
	st.report.BlackHeight = tree.BlackHeight()
	st.report.ArenaSlots = alloc.Size()
	st.report.Duration = time.Since(started)

	runner.metrics.RecordShape(ctx, st.report.FinalSize, st.report.Height)

	for _, mm := range st.report.Mismatches {
		runner.metrics.RecordMismatch(ctx, mm.Op)
	}

	span.SetAttributes(
		attribute.Int("workload.mismatches", len(st.report.Mismatches)),
		attribute.Int("workload.final_size", st.report.FinalSize),
	)

	if !st.report.Passed() {
		span.SetStatus(codes.Error, "mismatch")
	}

	runner.logger.InfoContext(ctx, "workload finished",
		slog.Int("ops", opts.Ops),
		slog.Int("size", st.report.FinalSize),
		slog.Int("height", st.report.Height),
		slog.Int("mismatches", len(st.report.Mismatches)),
		slog.Duration("duration", st.report.Duration),
	)

	return st.report, nil
}

func (runner *Runner) step(ctx context.Context, st *state, step int, rng *rand.Rand) {
	key := rng.Intn(runner.opts.Keys)
	choice := rng.Intn(100)
	started := time.Now()

	var (
		op  string
		hit bool
	)

	switch {
	case choice < mixInsert:
		op, hit = OpInsert, runner.insert(st, step, key)
	case choice < mixErase:
		op, hit = OpErase, runner.erase(st, step, key)
	case choice < mixFind:
		op, hit = OpFind, runner.find(st, step, key)
	case choice < mixLowerBound:
		op, hit = OpLowerBound, runner.bound(st, step, key, false)
	case choice < mixUpperBound:
		op, hit = OpUpperBound, runner.bound(st, step, key, true)
	default:
		op, hit = OpAssign, runner.assign(st, step, key)
	}

	st.report.Operations[op]++
	runner.metrics.RecordOperation(ctx, op, hit, time.Since(started))
}

// tryInsert inserts into the set, reporting allocator exhaustion instead of
// propagating the panic.
func tryInsert(set *ordered.Set[int], key int) (inserted bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			recoveredErr, ok := recovered.(error)
			if !ok || !errors.Is(recoveredErr, rbtree.ErrAllocatorExhausted) {
				panic(recovered)
			}

			err = recoveredErr
		}
	}()

	inserted, _ = set.Insert(key)

	return inserted, nil
}

func (runner *Runner) insert(st *state, step, key int) bool {
	sizeBefore := st.set.Len()

	inserted, err := tryInsert(st.set, key)
	if err != nil {
		st.report.Exhausted++

		if st.set.Len() != sizeBefore || st.set.Contains(key) {
			st.mismatch(step, OpInsert, key, "failed insert changed the set: %v", err)
		}

		return false
	}

	_, replaced := st.setRef.ReplaceOrInsert(key)
	if inserted == replaced {
		st.mismatch(step, OpInsert, key, "set inserted=%t, reference replaced=%t", inserted, replaced)
	}

	return inserted
}

func (runner *Runner) erase(st *state, step, key int) bool {
	deleted := st.set.Delete(key)

	_, refDeleted := st.setRef.Delete(key)
	if deleted != refDeleted {
		st.mismatch(step, OpErase, key, "set deleted=%t, reference deleted=%t", deleted, refDeleted)
	}

	mapDeleted := st.dict.Delete(key)

	_, mapRefDeleted := st.mapRef.Delete(ordered.Pair[int, int]{Key: key})
	if mapDeleted != mapRefDeleted {
		st.mismatch(step, OpErase, key, "map deleted=%t, reference deleted=%t", mapDeleted, mapRefDeleted)
	}

	return deleted
}

func (runner *Runner) find(st *state, step, key int) bool {
	found := st.set.Contains(key)
	if refFound := st.setRef.Has(key); found != refFound {
		st.mismatch(step, OpFind, key, "set found=%t, reference found=%t", found, refFound)
	}

	value, ok := st.dict.Get(key)

	refEntry, refOK := st.mapRef.Get(ordered.Pair[int, int]{Key: key})
	if refValue := refEntry.Value; ok != refOK || value != refValue {
		st.mismatch(step, OpFind, key, "map got (%d, %t), reference got (%d, %t)", value, ok, refValue, refOK)
	}

	return found
}

func (runner *Runner) bound(st *state, step, key int, upper bool) bool {
	op, pivot, it := OpLowerBound, key, st.set.LowerBound(key)
	if upper {
		op, pivot, it = OpUpperBound, key+1, st.set.UpperBound(key)
	}

	expected, expectedOK := 0, false

	st.setRef.AscendGreaterOrEqual(pivot, func(item int) bool {
		expected, expectedOK = item, true

		return false
	})

	switch {
	case it.Limit() != !expectedOK:
		st.mismatch(step, op, key, "set at end=%t, reference found=%t", it.Limit(), expectedOK)
	case expectedOK && it.Value() != expected:
		st.mismatch(step, op, key, "set returned %d, reference returned %d", it.Value(), expected)
	}

	return expectedOK
}

func (runner *Runner) assign(st *state, step, key int) bool {
	old, added := st.dict.Set(key, step)

	refOld, replaced := st.mapRef.Set(ordered.MakePair(key, step))
	if added == replaced || (replaced && old != refOld.Value) {
		st.mismatch(step, OpAssign, key, "map (old=%d, added=%t), reference (old=%d, replaced=%t)",
			old, added, refOld.Value, replaced)
	}

	return !added
}

func (runner *Runner) verify(ctx context.Context, st *state, step int) {
	st.report.Verifications++

	err := errors.Join(st.set.Tree().Verify(), st.dict.Tree().Verify())
	runner.metrics.RecordVerification(ctx, err)

	if err != nil {
		runner.logger.ErrorContext(ctx, "invariant violated", slog.Int("step", step), slog.String("error", err.Error()))
		st.mismatch(step, OpVerify, 0, "%v", err)

		return
	}

	runner.logger.DebugContext(ctx, "invariants hold", slog.Int("step", step), slog.Int("size", st.set.Len()))
}

func (runner *Runner) compareContents(st *state, step int) {
	actual := collect(st.set)

	expected := make([]int, 0, st.setRef.Len())

	st.setRef.Ascend(func(item int) bool {
		expected = append(expected, item)

		return true
	})

	if diff := lineDiff(dumpLines(expected), dumpLines(actual)); diff != "" {
		st.mismatch(step, OpContents, 0, "set contents differ from reference:\n%s", diff)
	}

	mapKeys := make([]int, 0, st.dict.Len())
	for key := range st.dict.Keys() {
		mapKeys = append(mapKeys, key)
	}

	mapRefKeys := make([]int, 0, st.mapRef.Len())

	st.mapRef.Scan(func(entry ordered.Pair[int, int]) bool {
		mapRefKeys = append(mapRefKeys, entry.Key)

		return true
	})

	if diff := lineDiff(dumpLines(mapRefKeys), dumpLines(mapKeys)); diff != "" {
		st.mismatch(step, OpContents, 0, "map keys differ from reference:\n%s", diff)
	}
}

func newSetReference() *gbtree.BTreeG[int] {
	return gbtree.NewOrderedG[int](referenceDegree)
}

func newMapReference() *tbtree.BTreeG[ordered.Pair[int, int]] {
	return tbtree.NewBTreeGOptions(
		func(a, b ordered.Pair[int, int]) bool {
			return a.Key < b.Key
		},
		tbtree.Options{NoLocks: true, Degree: referenceDegree})
}

func collect(set *ordered.Set[int]) []int {
	values := make([]int, 0, set.Len())
	for value := range set.All() {
		values = append(values, value)
	}

	return values
}
