package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/payments"
)

// TransactionSource finds transactions the sweeper must act on.
type TransactionSource interface {
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]payments.Transaction, error)
	FindConfirmedBookingPending(ctx context.Context, limit int) ([]payments.Transaction, error)
}

// Expirer force-drives a stuck transaction down the standard failure path.
type Expirer interface {
	ForceExpire(ctx context.Context, txnID uuid.UUID, reason string) error
}

// HoldExpirer cancels stale unpaid holds.
type HoldExpirer interface {
	ExpireUnpaidHolds(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// Config contains configuration for the background sweeps
type Config struct {
	Interval   time.Duration
	PaymentTTL time.Duration
	BatchSize  int
}

// DefaultConfig returns default sweeper configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:   1 * time.Minute,
		PaymentTTL: 5 * time.Minute,
		BatchSize:  100,
	}
}

// Sweeper guarantees termination for payments that never hear back from the
// gateway: stuck PENDING transactions fail, their bookings cancel, unpaid
// holds release their slots. Every record goes through the same paths a
// gateway callback would take, so a sweep and a late callback can race
// safely.
type Sweeper struct {
	txns   TransactionSource
	expire Expirer
	holds  HoldExpirer
	config *Config
	done   chan struct{}

	// now is swappable for tests
	now func() time.Time
}

// New creates a sweeper
func New(txns TransactionSource, expire Expirer, holds HoldExpirer, config *Config) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}
	return &Sweeper{
		txns:   txns,
		expire: expire,
		holds:  holds,
		config: config,
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Start starts the background sweep loop
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("Starting expiration sweeper with %v interval, %v TTL", s.config.Interval, s.config.PaymentTTL)
	go s.loop(ctx)
}

// Stop stops the background sweep loop
func (s *Sweeper) Stop() {
	log.Println("Stopping expiration sweeper...")
	close(s.done)
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one full sweep. A failure on one record never blocks the
// rest.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.sweepStalePayments(ctx)
	s.sweepInconsistentPayments(ctx)
	s.sweepUnpaidHolds(ctx)
}

func (s *Sweeper) sweepStalePayments(ctx context.Context) {
	cutoff := s.now().Add(-s.config.PaymentTTL)
	stale, err := s.txns.FindStalePending(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		log.Printf("Error finding stale pending transactions: %v", err)
		return
	}

	expired := 0
	for _, txn := range stale {
		if err := s.expire.ForceExpire(ctx, txn.ID, "payment expired"); err != nil {
			log.Printf("Error expiring transaction %s: %v", txn.ID, err)
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("Expired %d stale pending transactions", expired)
	}
}

// sweepInconsistentPayments handles the shape where a booking confirmed
// while its transaction stayed PENDING. The transaction is failed through
// the standard path; the settled booking itself is left alone and the
// mismatch is logged for investigation.
func (s *Sweeper) sweepInconsistentPayments(ctx context.Context) {
	inconsistent, err := s.txns.FindConfirmedBookingPending(ctx, s.config.BatchSize)
	if err != nil {
		log.Printf("Error finding inconsistent transactions: %v", err)
		return
	}

	for _, txn := range inconsistent {
		log.Printf("Data inconsistency: booking %v confirmed while transaction %s still PENDING", txn.BookingID, txn.ID)
		if err := s.expire.ForceExpire(ctx, txn.ID, "inconsistent pending payment"); err != nil {
			log.Printf("Error expiring inconsistent transaction %s: %v", txn.ID, err)
		}
	}
}

func (s *Sweeper) sweepUnpaidHolds(ctx context.Context) {
	cutoff := s.now().Add(-s.config.PaymentTTL)
	expired, err := s.holds.ExpireUnpaidHolds(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		log.Printf("Error expiring unpaid holds: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("Cancelled %d unpaid holds", expired)
	}
}
