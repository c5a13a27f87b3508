// Package trigger defines the contract for scheduling matching passes.
//
// Every queue mutation fires the affected bucket; the periodic sweep re-fires
// every live bucket as a safety net. Fires for a bucket already awaiting a
// pass coalesce into one, because a single pass drains the whole bucket.
package trigger

import (
	"context"
	"sync"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/pkg/metrics"
)

// defaultCapacity bounds the in-memory trigger channel.
const defaultCapacity = 4096

// Queue schedules bucket matching passes for the worker pool.
type Queue interface {
	// Fire schedules a pass over the bucket. Returns false only when the
	// queue is closed or full; a fire coalesced into a pending one returns
	// true, it is already scheduled.
	Fire(ctx context.Context, b model.Bucket) bool

	// Dequeue returns the channel workers receive buckets on. The channel
	// is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan model.Bucket

	// Release clears the pending mark for a bucket. Workers call it on
	// receipt, so fires arriving during a pass schedule a fresh one.
	Release(b model.Bucket)

	// Len returns the number of buckets awaiting a pass.
	Len(ctx context.Context) int

	// Close shuts the queue down; subsequent fires are rejected.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the trigger channel capacity.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// InMemoryQueue implements Queue with a buffered channel plus a pending set
// for coalescing.
type InMemoryQueue struct {
	mu       sync.Mutex
	buckets  chan model.Bucket
	pending  map[string]struct{}
	capacity int
	closed   bool
}

// NewInMemoryQueue creates a trigger queue with the given options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.buckets = make(chan model.Bucket, q.capacity)
	return q
}

// Fire schedules a pass over the bucket, coalescing with any pending fire.
func (q *InMemoryQueue) Fire(ctx context.Context, b model.Bucket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	key := b.Key()
	if _, scheduled := q.pending[key]; scheduled {
		metrics.RecordTriggerCoalesced()
		return true
	}

	select {
	case q.buckets <- b:
		q.pending[key] = struct{}{}
		metrics.RecordTriggerFired()
		metrics.UpdateTriggerQueueSize(len(q.buckets))
		return true
	case <-ctx.Done():
		return false
	default:
		// Full channel is tolerable: the sweep re-fires live buckets.
		return false
	}
}

// Dequeue returns the bucket channel for workers.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Bucket {
	return q.buckets
}

// Release clears the pending mark so later fires schedule a fresh pass.
func (q *InMemoryQueue) Release(b model.Bucket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, b.Key())
	metrics.UpdateTriggerQueueSize(len(q.buckets))
}

// Len returns the number of buckets awaiting a pass.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buckets)
}

// Close shuts down the queue and closes the dequeue channel.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.buckets)
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
