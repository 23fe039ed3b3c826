package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/storage"
)

type managerFixture struct {
	store    *storage.MemoryStore
	channel  *recordingChannel
	manager  *AppointmentManager
	user     *models.User
	notifier *Notifier
}

func newManagerFixture(t *testing.T, ch *recordingChannel) *managerFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	notifier := NewNotifier(store, ch, nil, NotifierConfig{Mode: NotifyModeInline})
	manager := NewAppointmentManager(store, notifier, ManagerConfig{ClinicName: "Test Clinic"})

	user, err := store.CreateUser(context.Background(), &models.User{Username: "asha", Phone: "+919000000000"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return &managerFixture{store: store, channel: ch, manager: manager, user: user, notifier: notifier}
}

func (f *managerFixture) book(t *testing.T, sittings int) *models.Appointment {
	t.Helper()
	appt, err := f.manager.Book(context.Background(), BookInput{
		UserID:        f.user.ID,
		Date:          "2026-03-01",
		Time:          "09:00",
		Service:       "Root Canal",
		TotalSittings: sittings,
	})
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	return appt
}

func TestAcceptPending(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	appt := f.book(t, 1)

	res, err := f.manager.Accept(context.Background(), appt.ID, "10:00")
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if res.Appointment.Status != models.AppointmentStatusConfirmed || res.Appointment.Time != "10:00" {
		t.Fatalf("appointment = %+v", res.Appointment)
	}
	if res.Message != "Confirmed & SMS Sent" {
		t.Fatalf("message = %q", res.Message)
	}

	msgs := f.channel.messages()
	if len(msgs) != 1 || msgs[0].body != "Hello asha, appointment confirmed for Root Canal on 2026-03-01 at 10:00." {
		t.Fatalf("messages = %+v", msgs)
	}

	if _, err := f.manager.Accept(context.Background(), appt.ID, "11:00"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second Accept() = %v, want ErrInvalidTransition", err)
	}
}

func TestDeclineWithFailingChannel(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{failAll: true})
	ctx := context.Background()

	pending := f.book(t, 1)
	res, err := f.manager.Decline(ctx, pending.ID)
	if err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	if res.Appointment.Status != models.AppointmentStatusCancelled {
		t.Fatalf("status = %s", res.Appointment.Status)
	}
	if res.Message != "Cancelled (SMS Failed)" {
		t.Fatalf("message = %q", res.Message)
	}

	stored, _ := f.store.GetAppointment(ctx, pending.ID)
	if stored.Status != models.AppointmentStatusCancelled {
		t.Fatalf("failed notification rolled back the transition")
	}

	confirmed := f.book(t, 1)
	if _, err := f.manager.Accept(ctx, confirmed.ID, ""); err != nil {
		t.Fatal(err)
	}
	if res, err := f.manager.Decline(ctx, confirmed.ID); err != nil || res.Appointment.Status != models.AppointmentStatusCancelled {
		t.Fatalf("Decline(confirmed) = %+v, %v", res, err)
	}
}

func TestCompleteSittingsThroughTreatment(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()
	appt := f.book(t, 3)

	steps := []struct {
		next    CompleteSittingInput
		current int
		status  string
		message string
	}{
		{CompleteSittingInput{NextDate: "2026-03-08", NextTime: "10:00"}, 1, models.AppointmentStatusConfirmed, "Sitting Updated & SMS Sent"},
		{CompleteSittingInput{NextDate: "2026-03-15", NextTime: "11:00"}, 2, models.AppointmentStatusConfirmed, "Sitting Updated & SMS Sent"},
		{CompleteSittingInput{NextDate: "2026-03-22", NextTime: "12:00"}, 3, models.AppointmentStatusCompleted, "Treatment Completed & Final SMS Sent"},
	}
	for i, step := range steps {
		res, err := f.manager.CompleteSitting(ctx, appt.ID, step.next)
		if err != nil {
			t.Fatalf("step %d: CompleteSitting() error = %v", i, err)
		}
		if res.Appointment.CurrentSitting != step.current || res.Appointment.Status != step.status {
			t.Fatalf("step %d: got current=%d status=%s", i, res.Appointment.CurrentSitting, res.Appointment.Status)
		}
		if res.Message != step.message {
			t.Fatalf("step %d: message = %q", i, res.Message)
		}
	}

	final, _ := f.store.GetAppointment(ctx, appt.ID)
	if final.Date != "2026-03-15" || final.Time != "11:00" {
		t.Fatalf("final sitting moved the schedule to %s %s", final.Date, final.Time)
	}

	msgs := f.channel.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].body != "Sitting 1 for Root Canal is done. Next sitting: 2026-03-08 at 10:00." {
		t.Fatalf("first body = %q", msgs[0].body)
	}
	for _, m := range msgs[:2] {
		if strings.Contains(m.body, "fully completed") {
			t.Fatalf("early message carries the finishing text: %q", m.body)
		}
	}
	if msgs[2].body != "Treatment for Root Canal is fully completed! Thank you for choosing Test Clinic." {
		t.Fatalf("final body = %q", msgs[2].body)
	}
}

func TestCompleteSingleSitting(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	appt := f.book(t, 0)

	res, err := f.manager.CompleteSitting(context.Background(), appt.ID, CompleteSittingInput{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Appointment.Status != models.AppointmentStatusCompleted || res.Appointment.CurrentSitting != 1 {
		t.Fatalf("appointment = %+v", res.Appointment)
	}
}

func TestCompleteSittingOnCompletedRejected(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()
	appt := f.book(t, 1)

	if _, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("CompleteSitting() on completed = %v, want ErrInvalidTransition", err)
	}
	stored, _ := f.store.GetAppointment(ctx, appt.ID)
	if stored.CurrentSitting != 1 {
		t.Fatalf("counter moved to %d", stored.CurrentSitting)
	}
}

func TestCompleteSittingReplay(t *testing.T) {
	ch := &recordingChannel{}
	f := newManagerFixture(t, ch)
	ctx := context.Background()
	appt := f.book(t, 3)

	first, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{NextDate: "2026-03-08", NextTime: "10:00", Sitting: 1})
	if err != nil {
		t.Fatal(err)
	}
	replay, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{NextDate: "2026-03-08", NextTime: "10:00", Sitting: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !replay.Replayed || replay.Message != MessageSittingReplayed {
		t.Fatalf("replay result = %+v", replay)
	}
	if replay.Appointment.CurrentSitting != 1 || replay.Appointment.Version != first.Appointment.Version {
		t.Fatalf("replay mutated the appointment: %+v", replay.Appointment)
	}
	if len(ch.messages()) != 1 {
		t.Fatalf("replay sent another message")
	}

	if _, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{Sitting: 3}); !errors.Is(err, ErrSittingMismatch) {
		t.Fatalf("skipping a sitting = %v, want ErrSittingMismatch", err)
	}
}

func TestConcurrentCompleteSittingAdvancesByTwo(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()
	appt := f.book(t, 5)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{NextDate: "2026-04-01", NextTime: "09:00"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("CompleteSitting() error = %v", err)
		}
	}

	stored, _ := f.store.GetAppointment(ctx, appt.ID)
	if stored.CurrentSitting != 2 {
		t.Fatalf("current sitting = %d, want 2", stored.CurrentSitting)
	}
}

func TestConflictFromOtherWriterIsRetried(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()
	appt := f.book(t, 3)

	racing := &conflictingStore{MemoryStore: f.store, conflicts: 1}
	manager := NewAppointmentManager(racing, f.notifier, ManagerConfig{})

	res, err := manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{})
	if err != nil {
		t.Fatalf("CompleteSitting() error = %v", err)
	}
	if res.Appointment.CurrentSitting != 1 {
		t.Fatalf("current sitting = %d", res.Appointment.CurrentSitting)
	}
	if racing.calls != 2 {
		t.Fatalf("update attempts = %d, want 2", racing.calls)
	}
}

// conflictingStore reports a version conflict on the first updates
type conflictingStore struct {
	*storage.MemoryStore
	conflicts int
	calls     int
}

func (s *conflictingStore) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	s.calls++
	if s.calls <= s.conflicts {
		return storage.ErrVersionConflict
	}
	return s.MemoryStore.UpdateAppointment(ctx, appt)
}

func TestTransitionsOnMissingAppointment(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()

	if _, err := f.manager.Accept(ctx, 999, "10:00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Accept() = %v", err)
	}
	if _, err := f.manager.Decline(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Decline() = %v", err)
	}
	if _, err := f.manager.CompleteSitting(ctx, 999, CompleteSittingInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CompleteSitting() = %v", err)
	}
	if err := f.manager.Delete(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete() = %v", err)
	}
}

func TestMissingDestinationCountsAsFailed(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()

	orphan, err := f.store.CreateAppointment(ctx, &models.Appointment{UserID: 777, Date: "2026-03-01", Service: "Cleaning"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.manager.Accept(ctx, orphan.ID, "10:00")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Confirmed (SMS Failed)" {
		t.Fatalf("message = %q", res.Message)
	}
	if len(f.channel.messages()) != 0 {
		t.Fatalf("message sent without a destination")
	}
}

func TestDeleteAnyStatus(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()
	appt := f.book(t, 1)
	if _, err := f.manager.CompleteSitting(ctx, appt.ID, CompleteSittingInput{}); err != nil {
		t.Fatal(err)
	}
	if err := f.manager.Delete(ctx, appt.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.store.GetAppointment(ctx, appt.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("appointment still present: %v", err)
	}
}

func TestBookUnknownUser(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	_, err := f.manager.Book(context.Background(), BookInput{UserID: 404, Date: "2026-03-01"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Book() = %v, want ErrNotFound", err)
	}
}

func TestFeedbackAndReviews(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()

	done := f.book(t, 1)
	open := f.book(t, 1)
	if _, err := f.manager.CompleteSitting(ctx, done.ID, CompleteSittingInput{}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []uint{done.ID, open.ID} {
		if _, err := f.manager.SubmitFeedback(ctx, id, 5, "Painless"); err != nil {
			t.Fatalf("SubmitFeedback(%d) error = %v", id, err)
		}
		if _, err := f.manager.SetVisibility(ctx, id, true); err != nil {
			t.Fatalf("SetVisibility(%d) error = %v", id, err)
		}
	}

	reviews, err := f.manager.ListReviews(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	if r := reviews[0]; r.ID != done.ID || r.Username != "asha" || r.Rating != 5 || r.Review != "Painless" {
		t.Fatalf("review = %+v", r)
	}

	if _, err := f.manager.SubmitFeedback(ctx, done.ID, 9, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("rating 9 = %v, want ErrInvalidRequest", err)
	}
	if _, err := f.manager.SetVisibility(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetVisibility(missing) = %v", err)
	}
}

func TestListOrders(t *testing.T) {
	f := newManagerFixture(t, &recordingChannel{})
	ctx := context.Background()

	inputs := []BookInput{
		{UserID: f.user.ID, Date: "2026-03-02", Time: "09:00"},
		{UserID: f.user.ID, Date: "2026-03-01", Time: "11:00"},
		{UserID: f.user.ID, Date: "2026-03-01", Time: "08:00"},
	}
	for _, in := range inputs {
		if _, err := f.manager.Book(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	all, err := f.manager.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, a := range all {
		got = append(got, a.Date+" "+a.Time)
		if a.User == nil {
			t.Fatalf("ListAll() did not attach the user")
		}
	}
	want := []string{"2026-03-01 08:00", "2026-03-01 11:00", "2026-03-02 09:00"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ListAll order = %v, want %v", got, want)
	}

	mine, err := f.manager.ListForUser(ctx, f.user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 3 || mine[0].ID < mine[2].ID {
		t.Fatalf("ListForUser() not newest first: %d, %d", mine[0].ID, mine[2].ID)
	}
}
