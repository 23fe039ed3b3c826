package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errCarrierDown = errors.New("carrier unavailable")

// recordingChannel keeps every message and fails the first failFirst sends
type recordingChannel struct {
	mu        sync.Mutex
	sent      []sentMessage
	failFirst int
	failAll   bool
	calls     int
}

type sentMessage struct {
	to   string
	body string
}

func (c *recordingChannel) Send(ctx context.Context, to, body string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.failAll || c.calls <= c.failFirst {
		return "", errCarrierDown
	}
	c.sent = append(c.sent, sentMessage{to: to, body: body})
	return fmt.Sprintf("SM%04d", c.calls), nil
}

func (c *recordingChannel) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// capturePublisher collects published notification ids
type capturePublisher struct {
	mu  sync.Mutex
	ids []uint
	err error
}

func (p *capturePublisher) Publish(ctx context.Context, id uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, id)
	return nil
}
