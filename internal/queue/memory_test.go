package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueueDelivers(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []uint
	done := make(chan struct{})
	go func() {
		_ = q.Consume(ctx, func(ctx context.Context, id uint) error {
			mu.Lock()
			got = append(got, id)
			n := len(got)
			mu.Unlock()
			if n == 3 {
				close(done)
			}
			return nil
		})
	}()

	for _, id := range []uint{1, 2, 3} {
		if err := q.Publish(ctx, id); err != nil {
			t.Fatalf("Publish(%d) error = %v", id, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}
	mu.Lock()
	defer mu.Unlock()
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("delivery order = %v", got)
	}
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()
	if err := q.Publish(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, 2); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Publish() = %v, want ErrQueueFull", err)
	}
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue(1)
	_ = q.Close()
	_ = q.Close()
	if err := q.Publish(context.Background(), 1); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Publish() = %v, want ErrQueueClosed", err)
	}
	if err := q.Consume(context.Background(), func(context.Context, uint) error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Consume() = %v, want ErrQueueClosed", err)
	}
}

func TestMemoryQueueConsumeStopsOnCancel(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Consume(ctx, func(context.Context, uint) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume() = %v", err)
	}
}
