package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQQueue publishes notification ids to a durable RabbitMQ queue
type RabbitMQQueue struct {
	url   string
	name  string
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	tag   string
	close chan struct{}
	once  sync.Once
}

// NewRabbitMQQueue connects to url and declares the notification queue
func NewRabbitMQQueue(url string) (*RabbitMQQueue, error) {
	q := &RabbitMQQueue{
		url:   url,
		name:  NotificationQueueName,
		tag:   "clinic-notify-" + uuid.NewString(),
		close: make(chan struct{}),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, err := q.channelLocked(); err != nil {
		return nil, err
	}
	return q, nil
}

// channelLocked returns the publishing channel, redialing when it was closed
func (q *RabbitMQQueue) channelLocked() (*amqp.Channel, error) {
	if q.ch != nil && !q.ch.IsClosed() {
		return q.ch, nil
	}
	if q.conn == nil || q.conn.IsClosed() {
		conn, err := amqp.Dial(q.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		q.conn = conn
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if err := declare(ch, q.name); err != nil {
		_ = ch.Close()
		return nil, err
	}
	q.ch = ch
	return ch, nil
}

func declare(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	return nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, notificationID uint) error {
	body, err := json.Marshal(Message{
		NotificationID: notificationID,
		PublishedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	ch, err := q.channelLocked()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.name, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Consume runs a reconnecting consumer until ctx is cancelled
func (q *RabbitMQQueue) Consume(ctx context.Context, h Handler) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second

	for {
		err := q.consumeOnce(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-q.close:
			return ErrQueueClosed
		default:
		}

		wait := policy.NextBackOff()
		log.Printf("⚠️  notification consumer stopped: %v; reconnecting in %s", err, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.close:
			return ErrQueueClosed
		case <-time.After(wait):
		}
	}
}

func (q *RabbitMQQueue) consumeOnce(ctx context.Context, h Handler) error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("⚠️  notification consumer: set QoS failed: %v", err)
	}
	if err := declare(ch, q.name); err != nil {
		return err
	}

	msgs, err := ch.Consume(q.name, q.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Printf("✅ Consuming %s as %s", q.name, q.tag)

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(q.tag, false)
			return ctx.Err()
		case <-q.close:
			_ = ch.Cancel(q.tag, false)
			return ErrQueueClosed
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			var msg Message
			if err := json.Unmarshal(d.Body, &msg); err != nil || msg.NotificationID == 0 {
				log.Printf("⚠️  notification consumer: bad message %q", d.Body)
				_ = d.Nack(false, false)
				continue
			}
			if err := h(ctx, msg.NotificationID); err != nil {
				log.Printf("⚠️  notification %d: %v", msg.NotificationID, err)
				// not requeued; the delivery log is the source of retries
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (q *RabbitMQQueue) Close() error {
	q.once.Do(func() { close(q.close) })

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
