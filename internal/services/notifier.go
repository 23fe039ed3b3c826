package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/storage"
)

// DeliveryOutcome is what a transition learns about its notification
type DeliveryOutcome int

const (
	OutcomeDelivered DeliveryOutcome = iota
	OutcomeFailed
	OutcomeQueued
)

func (o DeliveryOutcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeQueued:
		return "queued"
	default:
		return "failed"
	}
}

// Notification modes
const (
	NotifyModeInline = "inline"
	NotifyModeQueue  = "queue"
)

// IntentNotifier accepts notification intents from lifecycle transitions
type IntentNotifier interface {
	Notify(ctx context.Context, intent models.NotificationIntent) DeliveryOutcome
}

// Publisher hands a logged notification to the background worker
type Publisher interface {
	Publish(ctx context.Context, notificationID uint) error
}

type NotifierConfig struct {
	Mode         string
	MaxAttempts  int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// Notifier records every intent in the delivery log and delivers it either
// inline (one attempt, caller waits) or through the queue (worker retries).
type Notifier struct {
	store        storage.Store
	channel      Channel
	publisher    Publisher
	mode         string
	maxAttempts  int
	retryInitial time.Duration
	retryMax     time.Duration
}

func NewNotifier(store storage.Store, channel Channel, publisher Publisher, cfg NotifierConfig) *Notifier {
	mode := cfg.Mode
	if mode != NotifyModeInline {
		mode = NotifyModeQueue
	}
	if publisher == nil {
		mode = NotifyModeInline
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryInitial := cfg.RetryInitial
	if retryInitial <= 0 {
		retryInitial = 500 * time.Millisecond
	}
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 30 * time.Second
	}
	if channel == nil {
		channel = LogChannel{}
	}
	return &Notifier{
		store:        store,
		channel:      channel,
		publisher:    publisher,
		mode:         mode,
		maxAttempts:  maxAttempts,
		retryInitial: retryInitial,
		retryMax:     retryMax,
	}
}

// Mode returns the effective delivery mode
func (n *Notifier) Mode() string {
	return n.mode
}

// Notify logs intent and delivers or enqueues it. It never returns an error:
// delivery problems only change the outcome.
func (n *Notifier) Notify(ctx context.Context, intent models.NotificationIntent) DeliveryOutcome {
	ctx, span := tracer.Start(ctx, "notifier.notify")
	defer span.End()

	rec := &models.Notification{
		Kind:          intent.Kind,
		Destination:   intent.Destination,
		Body:          intent.Body,
		AppointmentID: intent.AppointmentID,
		Status:        models.NotificationStatusPending,
	}
	if intent.Destination == "" {
		rec.Status = models.NotificationStatusFailed
		rec.LastError = "no destination"
	}

	created, err := n.store.CreateNotification(ctx, rec)
	if err != nil {
		log.Printf("⚠️  Failed to record %s notification: %v", intent.Kind, err)
		spanError(span, err)
		if intent.Destination == "" {
			return OutcomeFailed
		}
		// Without a log entry there is nothing for the worker to pick up.
		if _, sendErr := n.channel.Send(ctx, intent.Destination, intent.Body); sendErr != nil {
			return OutcomeFailed
		}
		return OutcomeDelivered
	}
	if created.Status == models.NotificationStatusFailed {
		return OutcomeFailed
	}

	if n.mode == NotifyModeQueue {
		err := n.publisher.Publish(ctx, created.ID)
		if err == nil {
			return OutcomeQueued
		}
		log.Printf("⚠️  Failed to enqueue notification %d, delivering inline: %v", created.ID, err)
	}

	if err := n.deliver(ctx, created, 1); err != nil {
		spanError(span, err)
		return OutcomeFailed
	}
	return OutcomeDelivered
}

// Deliver sends a logged notification with the retry policy. It is the worker's entry point.
// Notifications that are no longer pending are skipped.
func (n *Notifier) Deliver(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "notifier.deliver")
	defer span.End()

	rec, err := n.store.GetNotification(ctx, id)
	if err != nil {
		spanError(span, err)
		return err
	}
	if rec.Status != models.NotificationStatusPending {
		return nil
	}
	remaining := n.maxAttempts - rec.Attempts
	if remaining <= 0 {
		rec.Status = models.NotificationStatusDead
		return n.store.UpdateNotification(ctx, rec)
	}
	err = n.deliver(ctx, rec, remaining)
	spanError(span, err)
	return err
}

// deliver attempts rec up to tries times and writes the result to the log
func (n *Notifier) deliver(ctx context.Context, rec *models.Notification, tries int) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = n.retryInitial
	policy.MaxInterval = n.retryMax

	attempt := func() (string, error) {
		rec.Attempts++
		ref, err := n.channel.Send(ctx, rec.Destination, rec.Body)
		if err != nil {
			rec.LastError = err.Error()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return ref, nil
	}

	ref, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(tries)),
	)

	// The log write must not be lost to a cancelled request.
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		if rec.Attempts >= n.maxAttempts {
			rec.Status = models.NotificationStatusDead
		} else if n.mode == NotifyModeInline || tries == 1 {
			rec.Status = models.NotificationStatusFailed
		}
		if updateErr := n.store.UpdateNotification(writeCtx, rec); updateErr != nil {
			log.Printf("⚠️  Failed to update notification %d: %v", rec.ID, updateErr)
		}
		log.Printf("❌ Notification %d (%s) to %s failed after %d attempt(s): %v",
			rec.ID, rec.Kind, rec.Destination, rec.Attempts, err)
		return fmt.Errorf("%w: %v", ErrChannelFailure, err)
	}

	now := time.Now()
	rec.Status = models.NotificationStatusSent
	rec.ProviderRef = ref
	rec.SentAt = &now
	rec.LastError = ""
	if updateErr := n.store.UpdateNotification(writeCtx, rec); updateErr != nil {
		log.Printf("⚠️  Failed to update notification %d: %v", rec.ID, updateErr)
	}
	return nil
}

// ApplyCarrierStatus records a delivery receipt reported by the carrier
func (n *Notifier) ApplyCarrierStatus(ctx context.Context, ref, status, errorCode string) error {
	rec, err := n.store.GetNotificationByProviderRef(ctx, ref)
	if err != nil {
		return err
	}
	switch status {
	case "delivered", "sent":
		rec.Status = models.NotificationStatusSent
	case "failed", "undelivered":
		rec.Status = models.NotificationStatusFailed
		rec.LastError = "carrier reported " + status
		if errorCode != "" {
			rec.LastError += " (" + errorCode + ")"
		}
	default:
		return nil
	}
	return n.store.UpdateNotification(ctx, rec)
}
