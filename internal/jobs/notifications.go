package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/amruthadental/clinic-backend/internal/models"
	"github.com/amruthadental/clinic-backend/internal/queue"
)

// Deliverer sends one logged notification
type Deliverer interface {
	Deliver(ctx context.Context, notificationID uint) error
}

// PendingSource lists notifications still waiting for delivery
type PendingSource interface {
	GetPendingNotifications(ctx context.Context, olderThan time.Time, limit int) ([]*models.Notification, error)
}

// OTPSweeper drops expired OTP entries
type OTPSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type NotificationJobConfig struct {
	SweepInterval time.Duration
	// StaleAfter is how long a pending notification may sit before it is re-published
	StaleAfter time.Duration
	BatchSize  int
}

// NotificationJob consumes the notification queue and, on a timer, re-publishes
// stale pending notifications and sweeps expired OTP entries.
type NotificationJob struct {
	queue     queue.Queue
	deliverer Deliverer
	pending   PendingSource
	otp       OTPSweeper

	interval   time.Duration
	staleAfter time.Duration
	batch      int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewNotificationJob creates the job. otp may be nil when codes expire on their own.
func NewNotificationJob(q queue.Queue, d Deliverer, pending PendingSource, otp OTPSweeper, cfg NotificationJobConfig) *NotificationJob {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	stale := cfg.StaleAfter
	if stale <= 0 {
		stale = 5 * time.Minute
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &NotificationJob{
		queue:      q,
		deliverer:  d,
		pending:    pending,
		otp:        otp,
		interval:   interval,
		staleAfter: stale,
		batch:      batch,
	}
}

// Start launches the consumer and the sweep loop. They stop when ctx is
// cancelled or Stop is called.
func (n *NotificationJob) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		log.Println("Notification jobs already running")
		return
	}
	ctx, n.cancel = context.WithCancel(ctx)
	n.running = true

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		if err := n.queue.Consume(ctx, n.deliverer.Deliver); err != nil && ctx.Err() == nil {
			log.Printf("❌ Notification consumer exited: %v", err)
		}
	}()
	go func() {
		defer n.wg.Done()
		n.sweepLoop(ctx)
	}()

	log.Printf("✅ Notification jobs started (sweep every %v)", n.interval)
}

// Stop cancels the jobs and waits for them to return
func (n *NotificationJob) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.cancel()
	n.mu.Unlock()

	n.wg.Wait()
	log.Println("Notification jobs stopped")
}

func (n *NotificationJob) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.RunSweep(ctx, time.Now())
		}
	}
}

// RunSweep performs one recovery pass at now
func (n *NotificationJob) RunSweep(ctx context.Context, now time.Time) {
	if n.otp != nil {
		removed, err := n.otp.Sweep(ctx, now)
		if err != nil {
			log.Printf("⚠️  OTP sweep failed: %v", err)
		} else if removed > 0 {
			log.Printf("🧹 Swept %d expired OTP entries", removed)
		}
	}

	stale, err := n.pending.GetPendingNotifications(ctx, now.Add(-n.staleAfter), n.batch)
	if err != nil {
		log.Printf("⚠️  Pending notification scan failed: %v", err)
		return
	}
	republished := 0
	for _, rec := range stale {
		if err := n.queue.Publish(ctx, rec.ID); err != nil {
			log.Printf("⚠️  Failed to re-publish notification %d: %v", rec.ID, err)
			continue
		}
		republished++
	}
	if republished > 0 {
		log.Printf("🔁 Re-published %d stale notifications", republished)
	}
}
