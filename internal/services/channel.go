package services

import (
	"context"
	"log"
)

// Channel delivers a message body to a destination phone number.
// It returns the carrier's message reference when one exists.
type Channel interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// LogChannel writes messages to the log instead of a carrier.
// It is used when no SMS credentials are configured.
type LogChannel struct{}

func (LogChannel) Send(ctx context.Context, to, body string) (string, error) {
	log.Printf("📨 [sms:log] to %s: %s", to, body)
	return "", nil
}
