// Package queue carries notification ids from the request path to the
// delivery worker.
package queue

import (
	"context"
	"errors"
)

// NotificationQueueName is the durable queue holding notification ids
const NotificationQueueName = "notification.intents"

var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue closed")
)

// Message is the payload published for one logged notification
type Message struct {
	NotificationID uint   `json:"notificationId"`
	PublishedAt    string `json:"publishedAt,omitempty"`
}

// Handler processes one notification id. A returned error is logged and the
// message dropped; the delivery log keeps the state needed to retry.
type Handler func(ctx context.Context, notificationID uint) error

// Queue is a notification transport
type Queue interface {
	Publish(ctx context.Context, notificationID uint) error
	// Consume blocks, feeding messages to h until ctx is cancelled
	Consume(ctx context.Context, h Handler) error
	Close() error
}
