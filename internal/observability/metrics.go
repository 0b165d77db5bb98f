package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOperationsTotal    = "rbcheck.operations"
	metricOperationDuration  = "rbcheck.operation.duration"
	metricVerificationsTotal = "rbcheck.verifications"
	metricMismatchesTotal    = "rbcheck.mismatches"
	metricTreeSize           = "rbcheck.tree.size"
	metricTreeHeight         = "rbcheck.tree.height"

	attrOp      = "op"
	attrOutcome = "outcome"
	attrStatus  = "status"

	outcomeHit  = "hit"
	outcomeMiss = "miss"

	statusOK     = "ok"
	statusFailed = "failed"
)

// operationBucketBoundaries covers 100ns to 10ms, the range a single tree
// operation spans from a warm cache hit to a deep rebalance under GC pressure.
var operationBucketBoundaries = []float64{1e-7, 2.5e-7, 5e-7, 1e-6, 2.5e-6, 5e-6, 1e-5, 1e-4, 1e-3, 1e-2}

// WorkloadMetrics holds the OTel instruments for a stress run.
// A nil *WorkloadMetrics records nothing.
type WorkloadMetrics struct {
	operationsTotal    metric.Int64Counter
	operationDuration  metric.Float64Histogram
	verificationsTotal metric.Int64Counter
	mismatchesTotal    metric.Int64Counter
	treeSize           metric.Int64Gauge
	treeHeight         metric.Int64Gauge
}

// NewWorkloadMetrics creates workload instruments from the given meter.
func NewWorkloadMetrics(mt metric.Meter) (*WorkloadMetrics, error) {
	b := newMetricBuilder(mt)

	wm := &WorkloadMetrics{
		operationsTotal: b.counter(metricOperationsTotal, "Tree operations executed", "{operation}"),
		operationDuration: b.histogram(metricOperationDuration, "Tree operation latency in seconds", "s",
			operationBucketBoundaries...),
		verificationsTotal: b.counter(metricVerificationsTotal, "Invariant verifications run", "{verification}"),
		mismatchesTotal:    b.counter(metricMismatchesTotal, "Disagreements with the reference container", "{mismatch}"),
		treeSize:           b.gauge(metricTreeSize, "Elements in the tree under test", "{element}"),
		treeHeight:         b.gauge(metricTreeHeight, "Height of the tree under test", "{node}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return wm, nil
}

// RecordOperation records one tree operation and whether it hit an element.
func (wm *WorkloadMetrics) RecordOperation(ctx context.Context, op string, hit bool, duration time.Duration) {
	if wm == nil {
		return
	}

	outcome := outcomeMiss
	if hit {
		outcome = outcomeHit
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrOutcome, outcome),
	)

	wm.operationsTotal.Add(ctx, 1, attrs)
	wm.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrOp, op)))
}

// RecordVerification records the result of an invariant check.
func (wm *WorkloadMetrics) RecordVerification(ctx context.Context, err error) {
	if wm == nil {
		return
	}

	status := statusOK
	if err != nil {
		status = statusFailed
	}

	wm.verificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordMismatch records a disagreement with the reference for op.
func (wm *WorkloadMetrics) RecordMismatch(ctx context.Context, op string) {
	if wm == nil {
		return
	}

	wm.mismatchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
}

// RecordShape records the current size and height of the tree.
func (wm *WorkloadMetrics) RecordShape(ctx context.Context, size, height int) {
	if wm == nil {
		return
	}

	wm.treeSize.Record(ctx, int64(size))
	wm.treeHeight.Record(ctx, int64(height))
}
