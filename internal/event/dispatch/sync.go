package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// SyncDispatcher executes handlers synchronously in the caller's goroutine.
// It provides panic recovery and context support.
type SyncDispatcher struct {
	executor *Executor

	// Stats
	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	skipped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewSyncDispatcher creates a new synchronous dispatcher.
func NewSyncDispatcher(opts ...ExecutorOption) *SyncDispatcher {
	return &SyncDispatcher{
		executor: NewExecutor(opts...),
	}
}

// Dispatch executes a handler synchronously with the given event.
// It blocks until the handler completes or panics.
func (d *SyncDispatcher) Dispatch(ctx context.Context, event any, handler Handler) Result {
	d.dispatched.Add(1)

	result := d.executor.Execute(ctx, event, handler)

	d.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.IsPanic():
		d.panicked.Add(1)
	case result.IsError():
		d.failed.Add(1)
	case result.IsSuccess():
		d.succeeded.Add(1)
	}

	return result
}

// Stats returns dispatch statistics.
// Note: Stats are read without a mutex, so values may be slightly inconsistent
// if stats are being updated concurrently.
func (d *SyncDispatcher) Stats() SyncDispatcherStats {
	dispatched := d.dispatched.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if dispatched > 0 {
		avgNs = totalNs / int64(dispatched)
	}

	return SyncDispatcherStats{
		Dispatched:    dispatched,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Skipped:       d.skipped.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// SyncDispatcherStats contains statistics for a sync dispatcher.
type SyncDispatcherStats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	Skipped       uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}
