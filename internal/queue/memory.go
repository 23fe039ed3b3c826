package queue

import (
	"context"
	"log"
	"sync"
)

// MemoryQueue is an in-process buffered queue. Messages are lost on restart;
// the recovery sweep re-publishes whatever is still pending.
type MemoryQueue struct {
	ch     chan uint
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a queue holding at most size undelivered ids
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{ch: make(chan uint, size)}
}

func (q *MemoryQueue) Publish(ctx context.Context, notificationID uint) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- notificationID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-q.ch:
			if !ok {
				return ErrQueueClosed
			}
			if err := h(ctx, id); err != nil {
				log.Printf("⚠️  notification %d: %v", id, err)
			}
		}
	}
}

// Len returns the number of buffered ids
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
