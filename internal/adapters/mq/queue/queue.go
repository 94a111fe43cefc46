// Package queue buffers accepted evaluations between intake and the workers
// that apply them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue provides non-blocking enqueue and blocking dequeue.
type Queue interface {
	// Enqueue adds e without blocking. It returns ErrFull when the queue is
	// at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, e model.Evaluation) error

	// Next blocks until an evaluation is available. It returns false once
	// the queue is closed and drained, or when ctx is done.
	Next(ctx context.Context) (model.Evaluation, bool)

	Len() int
	Capacity() int

	// Close stops intake. Evaluations already queued can still be read.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan model.Evaluation
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Evaluation, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, e model.Evaluation) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.items <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue) Next(ctx context.Context) (model.Evaluation, bool) {
	select {
	case e, ok := <-q.items:
		if !ok {
			return model.Evaluation{}, false
		}
		metrics.RecordQueueDequeue()
		metrics.UpdateQueueSize(len(q.items))
		return e, true
	case <-ctx.Done():
		return model.Evaluation{}, false
	}
}

func (q *InMemoryQueue) Len() int { return len(q.items) }

func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
