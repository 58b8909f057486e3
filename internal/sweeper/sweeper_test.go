package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MNhat168/sport-zone-sub003/internal/payments"
)

type fakeSource struct {
	stale        []payments.Transaction
	inconsistent []payments.Transaction
	staleCutoff  time.Time
	err          error
}

func (f *fakeSource) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]payments.Transaction, error) {
	f.staleCutoff = olderThan
	return f.stale, f.err
}

func (f *fakeSource) FindConfirmedBookingPending(ctx context.Context, limit int) ([]payments.Transaction, error) {
	return f.inconsistent, f.err
}

type fakeExpirer struct {
	mu      sync.Mutex
	calls   map[uuid.UUID]string
	failFor map[uuid.UUID]error
}

func newFakeExpirer() *fakeExpirer {
	return &fakeExpirer{calls: make(map[uuid.UUID]string), failFor: make(map[uuid.UUID]error)}
}

func (f *fakeExpirer) ForceExpire(ctx context.Context, txnID uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[txnID]; ok {
		return err
	}
	f.calls[txnID] = reason
	return nil
}

type fakeHoldExpirer struct {
	cutoff  time.Time
	expired int
	err     error
}

func (f *fakeHoldExpirer) ExpireUnpaidHolds(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	f.cutoff = olderThan
	return f.expired, f.err
}

func txnWithID(id uuid.UUID) payments.Transaction {
	return payments.Transaction{ID: id, Status: payments.StatusPending, OrderRef: id.String()}
}

func TestRunOnceExpiresStaleTransactions(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	source := &fakeSource{stale: []payments.Transaction{txnWithID(first), txnWithID(second)}}
	expirer := newFakeExpirer()
	holds := &fakeHoldExpirer{}

	sweeper := New(source, expirer, holds, &Config{Interval: time.Minute, PaymentTTL: 5 * time.Minute, BatchSize: 100})
	frozen := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return frozen }

	sweeper.RunOnce(context.Background())

	assert.Equal(t, frozen.Add(-5*time.Minute), source.staleCutoff)
	assert.Equal(t, frozen.Add(-5*time.Minute), holds.cutoff)
	require.Len(t, expirer.calls, 2)
	assert.Equal(t, "payment expired", expirer.calls[first])
	assert.Equal(t, "payment expired", expirer.calls[second])
}

func TestRunOnceContinuesPastFailingRecord(t *testing.T) {
	broken, healthy := uuid.New(), uuid.New()
	source := &fakeSource{stale: []payments.Transaction{txnWithID(broken), txnWithID(healthy)}}
	expirer := newFakeExpirer()
	expirer.failFor[broken] = errors.New("gateway verify timed out")

	sweeper := New(source, expirer, &fakeHoldExpirer{}, nil)
	sweeper.RunOnce(context.Background())

	require.Len(t, expirer.calls, 1)
	assert.Equal(t, "payment expired", expirer.calls[healthy])
}

func TestRunOnceFailsInconsistentTransactions(t *testing.T) {
	bookingID := uuid.New()
	stuck := txnWithID(uuid.New())
	stuck.BookingID = &bookingID
	source := &fakeSource{inconsistent: []payments.Transaction{stuck}}
	expirer := newFakeExpirer()

	sweeper := New(source, expirer, &fakeHoldExpirer{}, nil)
	sweeper.RunOnce(context.Background())

	require.Len(t, expirer.calls, 1)
	assert.Equal(t, "inconsistent pending payment", expirer.calls[stuck.ID])
}

func TestRunOnceToleratesSourceErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("db unavailable")}
	expirer := newFakeExpirer()
	holds := &fakeHoldExpirer{err: errors.New("db unavailable")}

	sweeper := New(source, expirer, holds, nil)
	sweeper.RunOnce(context.Background())

	assert.Empty(t, expirer.calls)
}

func TestNewDefaultsConfig(t *testing.T) {
	sweeper := New(&fakeSource{}, newFakeExpirer(), &fakeHoldExpirer{}, nil)
	assert.Equal(t, time.Minute, sweeper.config.Interval)
	assert.Equal(t, 5*time.Minute, sweeper.config.PaymentTTL)
	assert.Equal(t, 100, sweeper.config.BatchSize)
}

func TestStartStopTerminates(t *testing.T) {
	sweeper := New(&fakeSource{}, newFakeExpirer(), &fakeHoldExpirer{}, &Config{
		Interval:   10 * time.Millisecond,
		PaymentTTL: time.Minute,
		BatchSize:  10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}
