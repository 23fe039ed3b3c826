package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/storage"
)

// MessageSittingReplayed answers a completion that was already applied
const MessageSittingReplayed = "Sitting Already Recorded"

type ManagerConfig struct {
	ClinicName string
	// ConflictRetries bounds re-reads after a version conflict from another process
	ConflictRetries int
	RetryInitial    time.Duration
}

// BookInput is a new appointment request
type BookInput struct {
	UserID        uint
	Date          string
	Time          string
	Service       string
	TotalSittings int
}

// CompleteSittingInput carries the next visit and, optionally, the sitting being completed.
// Sitting == 0 means a plain increment.
type CompleteSittingInput struct {
	NextDate string
	NextTime string
	Sitting  int
}

// TransitionResult is the committed state plus the caller-facing message
type TransitionResult struct {
	Appointment *models.Appointment `json:"appointment"`
	Message     string              `json:"message"`
	Outcome     DeliveryOutcome     `json:"-"`
	Replayed    bool                `json:"replayed,omitempty"`
}

// AppointmentManager owns the appointment lifecycle
type AppointmentManager struct {
	store           storage.Store
	notifier        IntentNotifier
	clinic          string
	conflictRetries int
	retryInitial    time.Duration
	locks           *keyedMutex
}

func NewAppointmentManager(store storage.Store, notifier IntentNotifier, cfg ManagerConfig) *AppointmentManager {
	clinic := cfg.ClinicName
	if clinic == "" {
		clinic = DefaultClinicName
	}
	retries := cfg.ConflictRetries
	if retries <= 0 {
		retries = 5
	}
	initial := cfg.RetryInitial
	if initial <= 0 {
		initial = 20 * time.Millisecond
	}
	return &AppointmentManager{
		store:           store,
		notifier:        notifier,
		clinic:          clinic,
		conflictRetries: retries,
		retryInitial:    initial,
		locks:           newKeyedMutex(),
	}
}

// mutation edits a fresh copy of the appointment. Returning false skips the write.
type mutation func(a *models.Appointment) (bool, error)

// update runs fn against the latest stored state and writes the result with a
// version check. Calls for one id are serialized in-process; a conflict from
// another writer re-reads and re-applies fn.
func (m *AppointmentManager) update(ctx context.Context, id uint, fn mutation) (*models.Appointment, bool, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	type outcome struct {
		appt    *models.Appointment
		written bool
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retryInitial
	policy.MaxInterval = 20 * m.retryInitial

	op := func() (outcome, error) {
		appt, err := m.store.GetAppointment(ctx, id)
		if err != nil {
			return outcome{}, backoff.Permanent(err)
		}
		write, err := fn(appt)
		if err != nil {
			return outcome{}, backoff.Permanent(err)
		}
		if !write {
			return outcome{appt: appt}, nil
		}
		if err := m.store.UpdateAppointment(ctx, appt); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				return outcome{}, err
			}
			return outcome{}, backoff.Permanent(err)
		}
		return outcome{appt: appt, written: true}, nil
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(m.conflictRetries)),
	)
	if err != nil {
		return nil, false, err
	}
	return res.appt, res.written, nil
}

func (m *AppointmentManager) notify(ctx context.Context, a *models.Appointment, kind, body string) DeliveryOutcome {
	if m.notifier == nil {
		return OutcomeFailed
	}
	return m.notifier.Notify(ctx, models.NotificationIntent{
		Kind:          kind,
		Destination:   a.Destination(),
		Body:          body,
		AppointmentID: a.ID,
	})
}

// Accept confirms a pending appointment, optionally setting its time
func (m *AppointmentManager) Accept(ctx context.Context, id uint, at string) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "appointment.accept")
	defer span.End()
	span.SetAttributes(attribute.Int("appointment.id", int(id)))

	appt, _, err := m.update(ctx, id, func(a *models.Appointment) (bool, error) {
		if !CanTransition(ActionAccept, a.Status) {
			return false, fmt.Errorf("accept from %s: %w", a.Status, ErrInvalidTransition)
		}
		a.Status = models.AppointmentStatusConfirmed
		if at != "" {
			a.Time = at
		}
		return true, nil
	})
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	outcome := m.notify(ctx, appt, models.NotificationKindAppointmentConfirmed, confirmedMessage(appt))
	return &TransitionResult{Appointment: appt, Message: labelConfirmed.message(outcome), Outcome: outcome}, nil
}

// Decline cancels a pending or confirmed appointment
func (m *AppointmentManager) Decline(ctx context.Context, id uint) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "appointment.decline")
	defer span.End()
	span.SetAttributes(attribute.Int("appointment.id", int(id)))

	appt, _, err := m.update(ctx, id, func(a *models.Appointment) (bool, error) {
		if !CanTransition(ActionDecline, a.Status) {
			return false, fmt.Errorf("decline from %s: %w", a.Status, ErrInvalidTransition)
		}
		a.Status = models.AppointmentStatusCancelled
		return true, nil
	})
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	outcome := m.notify(ctx, appt, models.NotificationKindAppointmentCancelled, cancelledMessage(appt))
	return &TransitionResult{Appointment: appt, Message: labelCancelled.message(outcome), Outcome: outcome}, nil
}

// CompleteSitting records one finished sitting. Before the last sitting the
// appointment moves to the next visit and stays confirmed; the last sitting
// completes the treatment and keeps the final date and time.
func (m *AppointmentManager) CompleteSitting(ctx context.Context, id uint, in CompleteSittingInput) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "appointment.complete_sitting")
	defer span.End()
	span.SetAttributes(attribute.Int("appointment.id", int(id)), attribute.Int("appointment.sitting", in.Sitting))

	if in.Sitting < 0 {
		return nil, fmt.Errorf("sitting %d: %w", in.Sitting, ErrInvalidRequest)
	}

	appt, written, err := m.update(ctx, id, func(a *models.Appointment) (bool, error) {
		if in.Sitting > 0 && in.Sitting == a.CurrentSitting {
			return false, nil
		}
		if !CanTransition(ActionCompleteSitting, a.Status) {
			return false, fmt.Errorf("complete sitting from %s: %w", a.Status, ErrInvalidTransition)
		}
		if in.Sitting > 0 && in.Sitting != a.CurrentSitting+1 {
			return false, fmt.Errorf("sitting %d, appointment at %d of %d: %w",
				in.Sitting, a.CurrentSitting, a.TotalSittings, ErrSittingMismatch)
		}

		a.CurrentSitting++
		if a.CurrentSitting < a.TotalSittings {
			if in.NextDate != "" {
				a.Date = in.NextDate
			}
			if in.NextTime != "" {
				a.Time = in.NextTime
			}
			a.Status = models.AppointmentStatusConfirmed
		} else {
			a.CurrentSitting = a.TotalSittings
			a.Status = models.AppointmentStatusCompleted
		}
		return true, nil
	})
	if err != nil {
		spanError(span, err)
		return nil, err
	}
	if !written {
		return &TransitionResult{Appointment: appt, Message: MessageSittingReplayed, Replayed: true}, nil
	}

	if appt.Status == models.AppointmentStatusCompleted {
		outcome := m.notify(ctx, appt, models.NotificationKindTreatmentCompleted, treatmentDoneMessage(appt, m.clinic))
		return &TransitionResult{Appointment: appt, Message: labelTreatment.message(outcome), Outcome: outcome}, nil
	}
	outcome := m.notify(ctx, appt, models.NotificationKindSittingCompleted, sittingDoneMessage(appt))
	return &TransitionResult{Appointment: appt, Message: labelSitting.message(outcome), Outcome: outcome}, nil
}

// Delete removes an appointment in any status
func (m *AppointmentManager) Delete(ctx context.Context, id uint) error {
	ctx, span := tracer.Start(ctx, "appointment.delete")
	defer span.End()

	unlock := m.locks.Lock(id)
	defer unlock()

	if err := m.store.DeleteAppointment(ctx, id); err != nil {
		spanError(span, err)
		return err
	}
	log.Printf("🗑️  Appointment %d deleted", id)
	return nil
}

// Book creates a pending appointment for an existing user
func (m *AppointmentManager) Book(ctx context.Context, in BookInput) (*models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.book")
	defer span.End()

	if in.TotalSittings < 0 {
		return nil, fmt.Errorf("total sittings %d: %w", in.TotalSittings, ErrInvalidRequest)
	}
	if _, err := m.store.GetUser(ctx, in.UserID); err != nil {
		spanError(span, err)
		return nil, err
	}

	appt, err := m.store.CreateAppointment(ctx, &models.Appointment{
		UserID:        in.UserID,
		Date:          in.Date,
		Time:          in.Time,
		Service:       in.Service,
		Status:        models.AppointmentStatusPending,
		TotalSittings: in.TotalSittings,
	})
	if err != nil {
		spanError(span, err)
		return nil, err
	}
	return appt, nil
}

// Get returns one appointment with its owner
func (m *AppointmentManager) Get(ctx context.Context, id uint) (*models.Appointment, error) {
	return m.store.GetAppointment(ctx, id)
}

// ListForUser returns a user's appointments, newest booking first
func (m *AppointmentManager) ListForUser(ctx context.Context, userID uint) ([]*models.Appointment, error) {
	return m.store.ListAppointments(ctx, models.AppointmentFilter{
		UserID: userID,
		Order:  models.OrderCreatedDesc,
	})
}

// ListAll returns every appointment in schedule order with its owner
func (m *AppointmentManager) ListAll(ctx context.Context) ([]*models.Appointment, error) {
	return m.store.ListAppointments(ctx, models.AppointmentFilter{
		WithUser: true,
		Order:    models.OrderScheduleAsc,
	})
}

// ListReviews returns published feedback on completed treatments
func (m *AppointmentManager) ListReviews(ctx context.Context) ([]models.Review, error) {
	list, err := m.store.ListAppointments(ctx, models.AppointmentFilter{
		Status:      models.AppointmentStatusCompleted,
		VisibleOnly: true,
		WithUser:    true,
		Order:       models.OrderUpdatedDesc,
	})
	if err != nil {
		return nil, err
	}

	reviews := make([]models.Review, 0, len(list))
	for _, a := range list {
		reviews = append(reviews, models.Review{
			ID:        a.ID,
			Service:   a.Service,
			Rating:    a.Rating,
			Review:    a.Review,
			Username:  a.PatientName(),
			UpdatedAt: a.UpdatedAt,
		})
	}
	return reviews, nil
}

// SubmitFeedback stores the patient's rating (1..5) and review
func (m *AppointmentManager) SubmitFeedback(ctx context.Context, id uint, rating int, review string) (*models.Appointment, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating %d: %w", rating, ErrInvalidRequest)
	}
	appt, _, err := m.update(ctx, id, func(a *models.Appointment) (bool, error) {
		a.Rating = rating
		a.Review = review
		return true, nil
	})
	return appt, err
}

// SetVisibility publishes or hides an appointment's feedback
func (m *AppointmentManager) SetVisibility(ctx context.Context, id uint, visible bool) (*models.Appointment, error) {
	appt, _, err := m.update(ctx, id, func(a *models.Appointment) (bool, error) {
		a.IsVisible = visible
		return true, nil
	})
	return appt, err
}

// keyedMutex hands out one mutex per appointment id and forgets it when unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*keyedLock)}
}

// Lock blocks until id is free and returns the matching unlock
func (k *keyedMutex) Lock(id uint) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
