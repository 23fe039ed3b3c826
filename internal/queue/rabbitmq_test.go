package queue

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRabbitMQRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}

	q, err := NewRabbitMQQueue(url)
	if err != nil {
		t.Fatalf("NewRabbitMQQueue() error = %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const id = 987654
	if err := q.Publish(ctx, id); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := make(chan uint, 16)
	go func() {
		_ = q.Consume(ctx, func(ctx context.Context, n uint) error {
			got <- n
			return nil
		})
	}()

	for {
		select {
		case n := <-got:
			if n == id {
				return
			}
		case <-ctx.Done():
			t.Fatal("message not consumed")
		}
	}
}
