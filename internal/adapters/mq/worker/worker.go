// Package worker applies queued evaluations through a Processor.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/logger"
	"github.com/okian/hackscore/pkg/metrics"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// Source is where workers read evaluations from.
type Source interface {
	// Next blocks until an evaluation is available; false means stop.
	Next(ctx context.Context) (model.Evaluation, bool)
}

// Processor applies one evaluation: persist it and refresh the team's score.
type Processor interface {
	Process(ctx context.Context, e model.Evaluation) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, e model.Evaluation) error

func (f ProcessorFunc) Process(ctx context.Context, e model.Evaluation) error { return f(ctx, e) }

// InMemoryWorker pulls evaluations from a Source until it is drained or ctx ends.
type InMemoryWorker struct {
	source    Source
	processor Processor
	name      string
	logger    logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(source Source, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:    source,
		processor: processor,
		name:      "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes evaluations until the source is closed and drained or ctx is
// done. A failed evaluation is logged and counted; it does not stop the worker.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	for {
		e, ok := w.source.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		if err := w.process(ctx, e); err != nil {
			w.logger.Error(ctx, "error processing evaluation",
				logger.String("evaluationID", e.ID),
				logger.String("teamID", e.TeamID),
				logger.Error(err))
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, e model.Evaluation) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.processor.Process(ctx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordEvaluationFailed()
		metrics.RecordErrorByComponent("worker", "process_error")
		return fmt.Errorf("failed to apply evaluation %s: %w", e.ID, err)
	}
	metrics.RecordEvaluationProcessed()
	return nil
}

// Pool runs several workers against one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source

	group *errgroup.Group
	ctx   context.Context

	logger logger.Logger
}

// NewPool creates a pool. workerCount < 1 picks a value from the CPU count.
func NewPool(workerCount int, source Source, processor Processor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(source, processor, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches all workers. They stop when ctx is done or when the source
// is closed and drained.
func (p *Pool) Start(ctx context.Context) {
	p.group, p.ctx = errgroup.WithContext(ctx)
	for _, w := range p.workers {
		p.group.Go(func() error { return w.Run(p.ctx) })
	}
	metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Wait blocks until every worker returned. Cancellation is not an error.
func (p *Pool) Wait() error {
	if p.group == nil {
		return nil
	}
	err := p.group.Wait()
	metrics.UpdateWorkerCount(0)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Shutdown closes the source if it can be closed, lets the workers drain it
// and waits for them until ctx ends.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	select {
	case err := <-done:
		p.logger.Info(ctx, "worker pool stopped")
		return err
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
