// Package worker runs matching passes off the trigger queue.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/pkg/logger"
	"github.com/korobprog/supermock-matcher/pkg/metrics"
)

// workerShutdownTimeout bounds how long Stop waits per worker.
const workerShutdownTimeout = 5 * time.Second

// Matcher executes one matching pass over a bucket.
type Matcher interface {
	Pass(ctx context.Context, bucket model.Bucket) (int, error)
}

// Queue is how workers receive scheduled buckets.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Bucket
	Release(b model.Bucket)
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// Worker consumes buckets from the queue and runs matching passes. Distinct
// buckets may be processed by distinct workers concurrently; double
// allocation within one bucket is prevented by the store, not by the pool.
type Worker struct {
	queue   Queue
	matcher Matcher
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker bound to the queue and matcher.
func NewWorker(queue Queue, matcher Matcher, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		matcher:  matcher,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes buckets until ctx is cancelled, shutdown is signalled, or the
// queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	buckets := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case bucket, ok := <-buckets:
			if !ok {
				return
			}
			// Release before the pass so a fire landing mid-pass
			// schedules a fresh one.
			w.queue.Release(bucket)
			if _, err := w.matcher.Pass(ctx, bucket); err != nil {
				metrics.RecordWorkerError()
				w.logger.Error(ctx, "matching pass failed",
					logger.String("bucket", bucket.Key()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting up to the context deadline.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool runs a fixed set of workers over one trigger queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates count workers over the queue and matcher.
func NewPool(count int, queue Queue, matcher Matcher) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{workers: make([]*Worker, count)}
	for i := range p.workers {
		p.workers[i] = NewWorker(queue, matcher, WithName(fmt.Sprintf("worker-%d", i)))
	}
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerCount(len(p.workers))
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Stop shuts all workers down and waits for them to drain.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		_ = w.Shutdown(ctx)
		cancel()
	}
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
}
