package wallets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

type fakeGateway struct {
	mu          sync.Mutex
	refundCalls []string
	payoutCalls []uuid.UUID
	refundErr   error
	payoutErr   error
}

func (f *fakeGateway) Refund(ctx context.Context, method, externalRef string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls = append(f.refundCalls, externalRef)
	return f.refundErr
}

func (f *fakeGateway) Payout(ctx context.Context, holderID uuid.UUID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payoutCalls = append(f.payoutCalls, holderID)
	return f.payoutErr
}

type recordPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordPublisher) Close() error { return nil }

func (p *recordPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

type walletEnv struct {
	db        *gorm.DB
	repo      Repository
	svc       Service
	gateway   *fakeGateway
	publisher *recordPublisher
	platform  uuid.UUID
}

func newWalletEnv(t *testing.T) *walletEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/wallets.db?_pragma=busy_timeout(10000)"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Wallet{}, &Entry{}))

	env := &walletEnv{
		db:        db,
		repo:      NewRepository(db),
		gateway:   &fakeGateway{},
		publisher: &recordPublisher{},
		platform:  uuid.New(),
	}
	env.svc = NewService(db, env.repo, env.gateway, env.publisher, env.platform, logger.New())
	return env
}

func (e *walletEnv) balances(t *testing.T, holderID uuid.UUID, role Role) *Wallet {
	t.Helper()
	wallet, err := e.repo.GetByHolder(context.Background(), holderID, role)
	require.NoError(t, err)
	return wallet
}

func (e *walletEnv) seedPlatform(t *testing.T, systemBalance int64) {
	t.Helper()
	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		wallet, err := e.repo.GetOrCreateTx(tx, e.platform, RolePlatform)
		if err != nil {
			return err
		}
		return tx.Model(&Wallet{}).Where("id = ?", wallet.ID).
			Update("system_balance", systemBalance).Error
	}))
}

func (e *walletEnv) settle(t *testing.T, s Settlement) error {
	t.Helper()
	return e.db.Transaction(func(tx *gorm.DB) error {
		return e.svc.SettleBookingPaymentTx(tx, s)
	})
}

func TestSettleBookingPaymentCreditsBothWallets(t *testing.T) {
	env := newWalletEnv(t)
	ownerID := uuid.New()
	bookingID := uuid.New()

	err := env.settle(t, Settlement{
		BookingID:     bookingID,
		CustomerID:    uuid.New(),
		OwnerID:       ownerID,
		TotalPrice:    250000,
		BookingAmount: 225000,
		Method:        "VNPay",
	})
	require.NoError(t, err)

	platform := env.balances(t, env.platform, RolePlatform)
	assert.Equal(t, int64(250000), platform.SystemBalance)
	assert.Equal(t, int64(0), platform.PendingBalance)

	owner := env.balances(t, ownerID, RoleOwner)
	assert.Equal(t, int64(225000), owner.PendingBalance)
	assert.Equal(t, int64(0), owner.SystemBalance)

	var entries []Entry
	require.NoError(t, env.db.Where("booking_id = ?", bookingID).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, ReasonSettlement, entry.Reason)
	}
}

func TestSettleBookingPaymentRejectsBadAmounts(t *testing.T) {
	env := newWalletEnv(t)
	base := Settlement{
		BookingID:     uuid.New(),
		CustomerID:    uuid.New(),
		OwnerID:       uuid.New(),
		TotalPrice:    100000,
		BookingAmount: 90000,
	}

	zeroTotal := base
	zeroTotal.TotalPrice = 0
	require.ErrorIs(t, env.settle(t, zeroTotal), apperrors.ErrValidation)

	negativeAmount := base
	negativeAmount.BookingAmount = -1
	require.ErrorIs(t, env.settle(t, negativeAmount), apperrors.ErrValidation)

	excess := base
	excess.BookingAmount = base.TotalPrice + 1
	require.ErrorIs(t, env.settle(t, excess), apperrors.ErrValidation)

	// Nothing was written.
	var count int64
	require.NoError(t, env.db.Model(&Entry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSettleCheckInMovesBookingAmount(t *testing.T) {
	env := newWalletEnv(t)
	env.seedPlatform(t, 300000)
	ownerID := uuid.New()
	bookingID := uuid.New()

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.svc.SettleCheckInTx(tx, bookingID, ownerID, 225000)
	})
	require.NoError(t, err)

	platform := env.balances(t, env.platform, RolePlatform)
	assert.Equal(t, int64(75000), platform.SystemBalance)

	owner := env.balances(t, ownerID, RoleOwner)
	assert.Equal(t, int64(225000), owner.PendingBalance)
}

func TestSettleCheckInFailsClosedOnUncoveredBalance(t *testing.T) {
	env := newWalletEnv(t)
	env.seedPlatform(t, 100000)
	ownerID := uuid.New()

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.svc.SettleCheckInTx(tx, uuid.New(), ownerID, 225000)
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	// The aborted transaction applied nothing on either side.
	platform := env.balances(t, env.platform, RolePlatform)
	assert.Equal(t, int64(100000), platform.SystemBalance)

	_, err = env.repo.GetByHolder(context.Background(), ownerID, RoleOwner)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefundToCreditMovesBalanceToCustomer(t *testing.T) {
	env := newWalletEnv(t)
	env.seedPlatform(t, 250000)
	customerID := uuid.New()
	bookingID := uuid.New()

	err := env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   bookingID,
		CustomerID:  customerID,
		Method:      "VNPay",
		Destination: RefundToCredit,
		Amount:      250000,
	})
	require.NoError(t, err)

	platform := env.balances(t, env.platform, RolePlatform)
	assert.Equal(t, int64(0), platform.SystemBalance)

	customer := env.balances(t, customerID, RoleCustomer)
	assert.Equal(t, int64(250000), customer.RefundBalance)

	// Credit destination never touches the provider.
	assert.Empty(t, env.gateway.refundCalls)

	evts := env.publisher.all()
	require.Len(t, evts, 1)
	assert.Equal(t, events.WalletTransferCompleted, evts[0].Type)
	require.NotNil(t, evts[0].BookingID)
	assert.Equal(t, bookingID, *evts[0].BookingID)
}

func TestRefundToBankCallsGatewayAfterCommit(t *testing.T) {
	env := newWalletEnv(t)
	env.seedPlatform(t, 250000)

	err := env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   uuid.New(),
		CustomerID:  uuid.New(),
		Method:      "VNPay",
		ExternalRef: "vnp-ref-001",
		Destination: RefundToBank,
		Amount:      250000,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"vnp-ref-001"}, env.gateway.refundCalls)

	platform := env.balances(t, env.platform, RolePlatform)
	assert.Equal(t, int64(0), platform.SystemBalance)
}

func TestRefundToBankGatewayFailureKeepsDebit(t *testing.T) {
	env := newWalletEnv(t)
	env.seedPlatform(t, 250000)
	env.gateway.refundErr = errors.New("provider timeout")

	err := env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   uuid.New(),
		CustomerID:  uuid.New(),
		Method:      "VNPay",
		ExternalRef: "vnp-ref-002",
		Destination: RefundToBank,
		Amount:      250000,
	})
	require.ErrorIs(t, err, apperrors.ErrExternalGateway)

	// The debit committed before the provider call; a retry runs against it.
	platform := env.balances(t, env.platform, RolePlatform)
	assert.Equal(t, int64(0), platform.SystemBalance)
	assert.Empty(t, env.publisher.all())
}

func TestRefundFailsClosedOnUncoveredPlatformBalance(t *testing.T) {
	env := newWalletEnv(t)
	env.seedPlatform(t, 100000)

	err := env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   uuid.New(),
		CustomerID:  uuid.New(),
		Method:      "VNPay",
		ExternalRef: "vnp-ref-003",
		Destination: RefundToBank,
		Amount:      250000,
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.Empty(t, env.gateway.refundCalls)
}

func TestRefundRejectsBadRequests(t *testing.T) {
	env := newWalletEnv(t)

	err := env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   uuid.New(),
		CustomerID:  uuid.New(),
		Destination: RefundToCredit,
		Amount:      0,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	err = env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   uuid.New(),
		CustomerID:  uuid.New(),
		Destination: RefundDestination("paypal"),
		Amount:      100,
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestWithdrawDebitsRefundBalance(t *testing.T) {
	env := newWalletEnv(t)
	customerID := uuid.New()
	env.seedPlatform(t, 250000)
	require.NoError(t, env.svc.Refund(context.Background(), RefundRequest{
		BookingID:   uuid.New(),
		CustomerID:  customerID,
		Method:      "VNPay",
		Destination: RefundToCredit,
		Amount:      250000,
	}))

	require.NoError(t, env.svc.Withdraw(context.Background(), customerID, 200000))

	customer := env.balances(t, customerID, RoleCustomer)
	assert.Equal(t, int64(50000), customer.RefundBalance)
	require.Equal(t, []uuid.UUID{customerID}, env.gateway.payoutCalls)

	evts := env.publisher.all()
	require.Len(t, evts, 2)
	withdraw := evts[1]
	assert.Equal(t, events.WalletTransferCompleted, withdraw.Type)
	assert.Equal(t, "payout", withdraw.Method)
	assert.Nil(t, withdraw.BookingID)
}

func TestWithdrawFailsClosedWithoutBalance(t *testing.T) {
	env := newWalletEnv(t)
	customerID := uuid.New()

	err := env.svc.Withdraw(context.Background(), customerID, 100000)
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.Empty(t, env.gateway.payoutCalls)
}

func TestGetEntriesListsNewestFirst(t *testing.T) {
	env := newWalletEnv(t)
	ownerID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, env.settle(t, Settlement{
			BookingID:     uuid.New(),
			CustomerID:    uuid.New(),
			OwnerID:       ownerID,
			TotalPrice:    100000,
			BookingAmount: 90000,
		}))
	}

	entries, err := env.svc.GetEntries(context.Background(), ownerID, RoleOwner, 2, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, int64(90000), entry.Amount)
		assert.Equal(t, BucketPending, entry.Bucket)
	}

	_, err = env.svc.GetEntries(context.Background(), uuid.New(), RoleOwner, 10, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBalanceConservationAcrossSettlementAndCheckIn(t *testing.T) {
	env := newWalletEnv(t)
	ownerID := uuid.New()
	bookingID := uuid.New()

	require.NoError(t, env.settle(t, Settlement{
		BookingID:     bookingID,
		CustomerID:    uuid.New(),
		OwnerID:       ownerID,
		TotalPrice:    250000,
		BookingAmount: 225000,
	}))
	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		return env.svc.SettleCheckInTx(tx, bookingID, ownerID, 225000)
	}))

	platform := env.balances(t, env.platform, RolePlatform)
	owner := env.balances(t, ownerID, RoleOwner)

	// Check-in only moves money between wallets, so the sum after it
	// equals the sum right after settlement.
	assert.Equal(t, int64(250000+225000), platform.Total()+owner.Total())
	assert.Equal(t, int64(25000), platform.SystemBalance)
	assert.Equal(t, int64(450000), owner.PendingBalance)
}
