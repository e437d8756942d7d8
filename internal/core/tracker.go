package core

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Cycle identifies one started resolution cycle.
type Cycle struct {
	seq uint64
}

// Seq is the cycle's position in start order.
func (c Cycle) Seq() uint64 {
	return c.seq
}

// Tracker publishes only the most recently started cycle's result. Starting a
// cycle marks every earlier cycle stale.
type Tracker struct {
	seq     atomic.Uint64
	mu      sync.Mutex // serializes publication
	latest  *Result
	sinks   []Sink
	metrics Metrics
	logger  *zap.Logger
}

func NewTracker(logger *zap.Logger, metrics Metrics, sinks ...Sink) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Tracker{
		sinks:   sinks,
		metrics: metrics,
		logger:  logger,
	}
}

// Begin starts a new cycle.
func (t *Tracker) Begin() Cycle {
	return Cycle{seq: t.seq.Add(1)}
}

// IsCurrent reports whether no later cycle has started.
func (t *Tracker) IsCurrent(c Cycle) bool {
	return t.seq.Load() == c.seq
}

// Commit publishes result if c is still the latest cycle and reports whether it did.
func (t *Tracker) Commit(ctx context.Context, c Cycle, result *Result) bool {
	if result == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Checked under the publish lock so an older cycle can never land after a newer one.
	if !t.IsCurrent(c) {
		t.metrics.RecordStaleCycle()
		t.logger.Debug("Discarding stale cycle result",
			zap.Uint64("cycle_seq", c.seq),
			zap.Uint64("latest_seq", t.seq.Load()),
			zap.String("cycle_id", result.CycleID))
		return false
	}

	t.latest = result
	for _, sink := range t.sinks {
		sink.Publish(ctx, result)
	}
	return true
}

// Latest returns the last published result, or nil before the first publication.
func (t *Tracker) Latest() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}
