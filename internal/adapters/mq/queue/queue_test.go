package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/hackscore/internal/domain/model"
)

func evaluation(id string) model.Evaluation {
	return model.Evaluation{ID: id, RubricID: "r1", TeamID: "t1", JudgeID: "j1", Score: 5}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, evaluation("e1")); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	e, ok := q.Next(ctx)
	if !ok || e.ID != "e1" {
		t.Errorf("expected e1, got %v (ok=%v)", e.ID, ok)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"e1", "e2"} {
		if err := q.Enqueue(ctx, evaluation(id)); err != nil {
			t.Fatalf("expected enqueue to succeed: %v", err)
		}
	}
	if err := q.Enqueue(ctx, evaluation("e3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = q.Enqueue(ctx, evaluation(fmt.Sprintf("e%d", i)))
	}
	for i := 0; i < 5; i++ {
		e, _ := q.Next(ctx)
		if want := fmt.Sprintf("e%d", i); e.ID != want {
			t.Errorf("expected %s, got %s", want, e.ID)
		}
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	_ = q.Enqueue(ctx, evaluation("e1"))
	_ = q.Enqueue(ctx, evaluation("e2"))

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, evaluation("e3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	got := 0
	for {
		if _, ok := q.Next(ctx); !ok {
			break
		}
		got++
	}
	if got != 2 {
		t.Errorf("expected to drain 2 evaluations, got %d", got)
	}
}

func TestInMemoryQueue_ContextCancel(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := q.Next(ctx); ok {
		t.Error("expected Next to give up when the context ends")
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if err := q.Enqueue(cancelled, evaluation("e1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 50
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(ctx, evaluation(fmt.Sprintf("e-%d-%d", p, i))); err != nil {
					t.Errorf("unexpected enqueue error: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()

	if l := q.Len(); l != producers*perProducer {
		t.Errorf("expected %d queued, got %d", producers*perProducer, l)
	}
}
