package bookings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/fields"
	"github.com/MNhat168/sport-zone-sub003/internal/payments"
	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/internal/wallets"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

func intervalOf(start, end string) schedules.Interval {
	return schedules.Interval{Start: start, End: end}
}

type stubAdapter struct {
	mu          sync.Mutex
	checkoutErr error
	refundCalls []string
}

func (a *stubAdapter) Name() string { return "VNPay" }

func (a *stubAdapter) Verify(payload map[string]string, signature string) bool { return true }

func (a *stubAdapter) Normalize(payload map[string]string) (*payments.CanonicalEvent, error) {
	return nil, errors.New("not used")
}

func (a *stubAdapter) CheckoutURL(ctx context.Context, orderRef string, amount int64, description string) (string, error) {
	if a.checkoutErr != nil {
		return "", a.checkoutErr
	}
	return "https://pay.sportzone.test/checkout?ref=" + orderRef, nil
}

func (a *stubAdapter) Refund(ctx context.Context, externalRef string, amount int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refundCalls = append(a.refundCalls, externalRef)
	return nil
}

type stubRefundGateway struct {
	refundErr error
}

func (g *stubRefundGateway) Refund(ctx context.Context, method, externalRef string, amount int64) error {
	return g.refundErr
}

func (g *stubRefundGateway) Payout(ctx context.Context, holderID uuid.UUID, amount int64) error {
	return nil
}

type stubFieldDirectory struct {
	fields map[uuid.UUID]*fields.Field
}

func (d *stubFieldDirectory) GetField(ctx context.Context, id uuid.UUID) (*fields.Field, error) {
	field, ok := d.fields[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return field, nil
}

type stubGuestAccounts struct {
	customerID uuid.UUID
	err        error
}

func (g *stubGuestAccounts) CreateGuestAccount(ctx context.Context, email, name, phone string) (uuid.UUID, error) {
	if g.err != nil {
		return uuid.Nil, g.err
	}
	return g.customerID, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) ofType(eventType events.Type) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, evt := range p.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

type bookingEnv struct {
	db          *gorm.DB
	svc         Service
	repo        Repository
	paymentRepo payments.Repository
	walletRepo  wallets.Repository
	adapter     *stubAdapter
	gateway     *stubRefundGateway
	publisher   *capturePublisher
	field       *fields.Field
	customerID  uuid.UUID
	platformID  uuid.UUID
}

func newBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/bookings.db?_pragma=busy_timeout(10000)"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&schedules.Schedule{},
		&payments.Transaction{},
		&wallets.Wallet{},
		&wallets.Entry{},
		&Booking{},
	))

	field := &fields.Field{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Name:         "San A",
		Sport:        "futsal",
		PricePerHour: 250000,
		OpenTime:     "06:00",
		CloseTime:    "22:00",
		Active:       true,
	}

	env := &bookingEnv{
		db:          db,
		repo:        NewRepository(db),
		paymentRepo: payments.NewRepository(db),
		walletRepo:  wallets.NewRepository(db),
		adapter:     &stubAdapter{},
		gateway:     &stubRefundGateway{},
		publisher:   &capturePublisher{},
		field:       field,
		customerID:  uuid.New(),
		platformID:  uuid.New(),
	}

	log := logger.New()
	walletService := wallets.NewService(db, env.walletRepo, env.gateway, env.publisher, env.platformID, log)
	env.svc = NewService(
		db,
		env.repo,
		schedules.NewRepository(db),
		env.paymentRepo,
		payments.NewRegistry(env.adapter),
		walletService,
		&stubFieldDirectory{fields: map[uuid.UUID]*fields.Field{field.ID: field}},
		&stubGuestAccounts{customerID: uuid.New()},
		env.publisher,
		Config{PlatformFeeRate: 0.10},
		log,
	)
	return env
}

func (e *bookingEnv) createRequest(start, end string) CreateBookingRequest {
	return CreateBookingRequest{
		FieldID:   e.field.ID.String(),
		Date:      "2026-09-05",
		StartTime: start,
		EndTime:   end,
		Method:    "VNPay",
	}
}

func (e *bookingEnv) createBooking(t *testing.T, start, end string) *CreateBookingResponse {
	t.Helper()
	resp, err := e.svc.CreateBooking(context.Background(), e.customerID, e.createRequest(start, end))
	require.NoError(t, err)
	return resp
}

// markPaid drives the paired transaction to SUCCEEDED the way the reconciler
// would after an authentic gateway notification.
func (e *bookingEnv) markPaid(t *testing.T, booking *Booking) {
	t.Helper()
	require.NotNil(t, booking.TransactionID)
	swapped, err := e.paymentRepo.UpdateStatusIf(context.Background(), *booking.TransactionID,
		[]payments.Status{payments.StatusPending, payments.StatusProcessing},
		payments.StatusSucceeded, "ext-ref-001", "")
	require.NoError(t, err)
	require.True(t, swapped)
}

func (e *bookingEnv) reload(t *testing.T, id uuid.UUID) *Booking {
	t.Helper()
	booking, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return booking
}

func (e *bookingEnv) platformWallet(t *testing.T) *wallets.Wallet {
	t.Helper()
	wallet, err := e.walletRepo.GetByHolder(context.Background(), e.platformID, wallets.RolePlatform)
	require.NoError(t, err)
	return wallet
}

func TestCreateBookingOpensPaymentAndReservesSlot(t *testing.T) {
	env := newBookingEnv(t)

	resp := env.createBooking(t, "08:00", "10:00")
	booking := resp.Booking

	assert.Equal(t, StatusPending, booking.Status)
	assert.Equal(t, PaymentUnpaid, booking.PaymentStatus)
	assert.Equal(t, int64(500000), booking.TotalPrice)
	assert.Equal(t, int64(50000), booking.PlatformFee)
	assert.Equal(t, int64(450000), booking.BookingAmount)
	assert.Equal(t, env.field.OwnerID, booking.OwnerID)
	require.NotNil(t, booking.TransactionID)
	assert.NotEmpty(t, resp.OrderRef)
	assert.Equal(t, "https://pay.sportzone.test/checkout?ref="+resp.OrderRef, resp.PaymentURL)

	txn, err := env.paymentRepo.GetByBookingID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusPending, txn.Status)
	assert.Equal(t, booking.TotalPrice, txn.Amount)

	// The slot is held: a competing booking for the same interval loses.
	_, err = env.svc.CreateBooking(context.Background(), uuid.New(), env.createRequest("09:00", "10:00"))
	require.ErrorIs(t, err, apperrors.ErrSlotConflict)
}

func TestCreateBookingLosingRaceWritesNothing(t *testing.T) {
	env := newBookingEnv(t)
	env.createBooking(t, "08:00", "09:00")

	_, err := env.svc.CreateBooking(context.Background(), uuid.New(), env.createRequest("08:00", "09:00"))
	require.ErrorIs(t, err, apperrors.ErrSlotConflict)

	var bookingCount, txnCount int64
	require.NoError(t, env.db.Model(&Booking{}).Count(&bookingCount).Error)
	require.NoError(t, env.db.Model(&payments.Transaction{}).Count(&txnCount).Error)
	assert.Equal(t, int64(1), bookingCount)
	assert.Equal(t, int64(1), txnCount)
}

func TestCreateBookingValidation(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(req *CreateBookingRequest)
	}{
		{"malformed field id", func(req *CreateBookingRequest) { req.FieldID = "not-a-uuid" }},
		{"unknown field", func(req *CreateBookingRequest) { req.FieldID = uuid.NewString() }},
		{"malformed date", func(req *CreateBookingRequest) { req.Date = "05-09-2026" }},
		{"inverted interval", func(req *CreateBookingRequest) { req.StartTime, req.EndTime = "10:00", "08:00" }},
		{"before opening", func(req *CreateBookingRequest) { req.StartTime, req.EndTime = "05:00", "07:00" }},
		{"after closing", func(req *CreateBookingRequest) { req.StartTime, req.EndTime = "21:00", "23:00" }},
		{"unsupported method", func(req *CreateBookingRequest) { req.Method = "momo" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := env.createRequest("08:00", "09:00")
			tt.mutate(&req)
			_, err := env.svc.CreateBooking(ctx, env.customerID, req)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	env.field.Active = false
	_, err := env.svc.CreateBooking(ctx, env.customerID, env.createRequest("08:00", "09:00"))
	require.ErrorIs(t, err, apperrors.ErrValidation)
	env.field.Active = true
}

func TestHoldThenInitiatePayment(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	req := env.createRequest("14:00", "15:00")
	req.Method = ""
	resp, err := env.svc.CreateBooking(ctx, env.customerID, req)
	require.NoError(t, err)
	assert.Nil(t, resp.Booking.TransactionID)
	assert.Empty(t, resp.OrderRef)
	assert.Empty(t, resp.PaymentURL)

	opened, err := env.svc.InitiatePayment(ctx, env.customerID, resp.Booking.ID, "VNPay")
	require.NoError(t, err)
	require.NotNil(t, opened.Booking.TransactionID)
	assert.NotEmpty(t, opened.PaymentURL)

	// A second open fails: the hold already carries a transaction.
	_, err = env.svc.InitiatePayment(ctx, env.customerID, resp.Booking.ID, "VNPay")
	require.ErrorIs(t, err, apperrors.ErrState)

	_, err = env.svc.InitiatePayment(ctx, uuid.New(), resp.Booking.ID, "VNPay")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateGuestBooking(t *testing.T) {
	env := newBookingEnv(t)

	req := GuestBookingRequest{
		CreateBookingRequest: env.createRequest("16:00", "17:00"),
		Email:                "guest@example.com",
		Name:                 "Khach Le",
	}
	resp, err := env.svc.CreateGuestBooking(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.Booking.CustomerID)
	assert.NotEqual(t, env.customerID, resp.Booking.CustomerID)
}

func TestConfirmFromPaymentIsIdempotent(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "10:00")
	env.markPaid(t, resp.Booking)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.svc.ConfirmFromPayment(ctx, resp.Booking.ID))
	}

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, PaymentPaid, booking.PaymentStatus)

	// Settlement applied exactly once.
	platform := env.platformWallet(t)
	assert.Equal(t, booking.TotalPrice, platform.SystemBalance)

	owner, err := env.walletRepo.GetByHolder(ctx, env.field.OwnerID, wallets.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, booking.BookingAmount, owner.PendingBalance)

	assert.Len(t, env.publisher.ofType(events.BookingConfirmed), 1)

	confirmed, err := env.svc.IsConfirmed(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestConfirmFromPaymentRequiresCapturedTransaction(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")

	// The paired transaction is still PENDING; a forged confirmation must
	// not move the booking.
	err := env.svc.ConfirmFromPayment(ctx, resp.Booking.ID)
	require.ErrorIs(t, err, apperrors.ErrState)

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusPending, booking.Status)
	assert.Equal(t, PaymentUnpaid, booking.PaymentStatus)
	assert.Empty(t, env.publisher.ofType(events.BookingConfirmed))
}

func TestCancelFromPaymentReleasesSlot(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")

	require.NoError(t, env.svc.CancelFromPayment(ctx, resp.Booking.ID, ReasonPaymentFailed))
	require.NoError(t, env.svc.CancelFromPayment(ctx, resp.Booking.ID, ReasonPaymentFailed))

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusCancelled, booking.Status)
	assert.Equal(t, ReasonPaymentFailed, booking.CancelReason)
	require.NotNil(t, booking.CancelledAt)

	// The open transaction was parked so a late gateway success cannot
	// resurrect the booking.
	txn, err := env.paymentRepo.GetByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusCancelled, txn.Status)

	// The interval is free again.
	rebooked, err := env.svc.CreateBooking(ctx, uuid.New(), env.createRequest("08:00", "09:00"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rebooked.Booking.Status)

	assert.Len(t, env.publisher.ofType(events.BookingCancelled), 1)
}

func TestCancelAfterCaptureLosesToConfirmation(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")
	env.markPaid(t, resp.Booking)

	// A failure event racing a captured payment must not cancel the
	// booking; money the customer already paid has to settle.
	err := env.svc.CancelFromPayment(ctx, resp.Booking.ID, ReasonPaymentFailed)
	require.ErrorIs(t, err, apperrors.ErrState)

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusPending, booking.Status)
	assert.Equal(t, PaymentUnpaid, booking.PaymentStatus)

	txn, err := env.paymentRepo.GetByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusSucceeded, txn.Status)
	assert.Empty(t, env.publisher.ofType(events.BookingCancelled))

	// The confirmation path still goes through and settles.
	require.NoError(t, env.svc.ConfirmFromPayment(ctx, booking.ID))
	booking = env.reload(t, booking.ID)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, booking.TotalPrice, env.platformWallet(t).SystemBalance)
}

func TestCancelAfterConfirmIsRejected(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")
	env.markPaid(t, resp.Booking)
	require.NoError(t, env.svc.ConfirmFromPayment(ctx, resp.Booking.ID))

	err := env.svc.CancelFromPayment(ctx, resp.Booking.ID, ReasonPaymentFailed)
	require.ErrorIs(t, err, apperrors.ErrState)

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusConfirmed, booking.Status)
}

func TestCancelBookingChecksOwnership(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")

	err := env.svc.CancelBooking(ctx, resp.Booking.ID, uuid.New())
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, env.svc.CancelBooking(ctx, resp.Booking.ID, env.customerID))
	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusCancelled, booking.Status)
	assert.Equal(t, ReasonCustomerCancel, booking.CancelReason)
}

func TestCheckInCompletesAndTransfers(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "10:00")
	env.markPaid(t, resp.Booking)
	require.NoError(t, env.svc.ConfirmFromPayment(ctx, resp.Booking.ID))

	require.NoError(t, env.svc.CheckIn(ctx, resp.Booking.ID, env.field.OwnerID))

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, StatusCompleted, booking.Status)
	require.NotNil(t, booking.CompletedAt)

	// The owner's share left the platform balance; the fee stays.
	platform := env.platformWallet(t)
	assert.Equal(t, booking.PlatformFee, platform.SystemBalance)

	// Repeated check-in confirmations are no-ops.
	require.NoError(t, env.svc.CheckIn(ctx, resp.Booking.ID, env.field.OwnerID))
	assert.Equal(t, booking.PlatformFee, env.platformWallet(t).SystemBalance)
}

func TestCheckInGuards(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")

	err := env.svc.CheckIn(ctx, resp.Booking.ID, uuid.New())
	require.ErrorIs(t, err, apperrors.ErrValidation)

	// A booking that never confirmed cannot complete.
	err = env.svc.CheckIn(ctx, resp.Booking.ID, env.field.OwnerID)
	require.ErrorIs(t, err, apperrors.ErrState)
}

func TestRefundBookingToCredit(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "10:00")
	env.markPaid(t, resp.Booking)
	require.NoError(t, env.svc.ConfirmFromPayment(ctx, resp.Booking.ID))

	require.NoError(t, env.svc.RefundBooking(ctx, resp.Booking.ID, wallets.RefundToCredit, 0))

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, PaymentRefunded, booking.PaymentStatus)

	customer, err := env.walletRepo.GetByHolder(ctx, env.customerID, wallets.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, booking.TotalPrice, customer.RefundBalance)

	// The paid -> refunded swap is the idempotency guard.
	err = env.svc.RefundBooking(ctx, resp.Booking.ID, wallets.RefundToCredit, 0)
	require.ErrorIs(t, err, apperrors.ErrState)
	assert.Equal(t, booking.TotalPrice, env.reloadCustomerRefund(t))
}

func (e *bookingEnv) reloadCustomerRefund(t *testing.T) int64 {
	t.Helper()
	customer, err := e.walletRepo.GetByHolder(context.Background(), e.customerID, wallets.RoleCustomer)
	require.NoError(t, err)
	return customer.RefundBalance
}

func TestRefundBookingGuards(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")

	// Not captured yet.
	err := env.svc.RefundBooking(ctx, resp.Booking.ID, wallets.RefundToCredit, 0)
	require.ErrorIs(t, err, apperrors.ErrState)

	env.markPaid(t, resp.Booking)
	require.NoError(t, env.svc.ConfirmFromPayment(ctx, resp.Booking.ID))

	booking := env.reload(t, resp.Booking.ID)
	err = env.svc.RefundBooking(ctx, resp.Booking.ID, wallets.RefundToCredit, booking.TotalPrice+1)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRefundBookingRevertsMarkOnLedgerFailure(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	resp := env.createBooking(t, "08:00", "09:00")
	env.markPaid(t, resp.Booking)
	require.NoError(t, env.svc.ConfirmFromPayment(ctx, resp.Booking.ID))

	// Drain the platform balance so the refund debit fails closed.
	require.NoError(t, env.db.Model(&wallets.Wallet{}).
		Where("holder_id = ?", env.platformID).
		Update("system_balance", 0).Error)

	err := env.svc.RefundBooking(ctx, resp.Booking.ID, wallets.RefundToCredit, 0)
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	booking := env.reload(t, resp.Booking.ID)
	assert.Equal(t, PaymentPaid, booking.PaymentStatus)
}

func TestExpireUnpaidHolds(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	// A hold with no payment transaction.
	holdReq := env.createRequest("08:00", "09:00")
	holdReq.Method = ""
	hold, err := env.svc.CreateBooking(ctx, env.customerID, holdReq)
	require.NoError(t, err)

	// A booking that already opened a payment must survive the sweep.
	withPayment := env.createBooking(t, "10:00", "11:00")

	backdated := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&Booking{}).
		Where("id IN ?", []uuid.UUID{hold.Booking.ID, withPayment.Booking.ID}).
		Update("created_at", backdated).Error)

	expired, err := env.svc.ExpireUnpaidHolds(ctx, time.Now().UTC().Add(-30*time.Minute), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	cancelled := env.reload(t, hold.Booking.ID)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, ReasonUnpaidHold, cancelled.CancelReason)

	survivor := env.reload(t, withPayment.Booking.ID)
	assert.Equal(t, StatusPending, survivor.Status)

	// The freed interval can be booked again.
	_, err = env.svc.CreateBooking(ctx, uuid.New(), env.createRequest("08:00", "09:00"))
	require.NoError(t, err)
}

func TestListUserBookings(t *testing.T) {
	env := newBookingEnv(t)
	ctx := context.Background()

	first := env.createBooking(t, "08:00", "09:00")
	env.createBooking(t, "10:00", "11:00")
	require.NoError(t, env.svc.CancelBooking(ctx, first.Booking.ID, env.customerID))

	all, total, err := env.svc.ListUserBookings(ctx, env.customerID, BookingListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	cancelled, total, err := env.svc.ListUserBookings(ctx, env.customerID, BookingListQuery{Status: StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.Booking.ID, cancelled[0].ID)

	_, _, err = env.svc.ListUserBookings(ctx, uuid.New(), BookingListQuery{})
	require.NoError(t, err)
}

func TestCheckoutLinkFailureIsNotFatal(t *testing.T) {
	env := newBookingEnv(t)
	env.adapter.checkoutErr = fmt.Errorf("gateway unavailable")

	resp := env.createBooking(t, "08:00", "09:00")
	assert.NotEmpty(t, resp.OrderRef)
	assert.Empty(t, resp.PaymentURL)

	// The transaction stays open for a retry.
	txn, err := env.paymentRepo.GetByBookingID(context.Background(), resp.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusPending, txn.Status)
}
