package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/fields"
	"github.com/MNhat168/sport-zone-sub003/internal/payments"
	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/internal/wallets"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// FieldDirectory is the catalog lookup the lifecycle needs for pricing and
// ownership.
type FieldDirectory interface {
	GetField(ctx context.Context, id uuid.UUID) (*fields.Field, error)
}

// GuestAccounts provisions a customer id for guest checkout. Failures
// surface before any slot or booking mutation.
type GuestAccounts interface {
	CreateGuestAccount(ctx context.Context, email, name, phone string) (uuid.UUID, error)
}

// Service interface defines the contract for booking lifecycle logic
type Service interface {
	CreateBooking(ctx context.Context, customerID uuid.UUID, req CreateBookingRequest) (*CreateBookingResponse, error)
	CreateGuestBooking(ctx context.Context, req GuestBookingRequest) (*CreateBookingResponse, error)
	InitiatePayment(ctx context.Context, customerID, bookingID uuid.UUID, method string) (*CreateBookingResponse, error)

	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListUserBookings(ctx context.Context, customerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)

	CancelBooking(ctx context.Context, bookingID, customerID uuid.UUID) error
	CheckIn(ctx context.Context, bookingID, ownerID uuid.UUID) error
	RefundBooking(ctx context.Context, bookingID uuid.UUID, destination wallets.RefundDestination, amount int64) error

	// Payment-driven transitions, invoked by the event consumer and the
	// reconciler's fallback check. Both are idempotent.
	ConfirmFromPayment(ctx context.Context, bookingID uuid.UUID) error
	CancelFromPayment(ctx context.Context, bookingID uuid.UUID, reason string) error
	IsConfirmed(ctx context.Context, bookingID uuid.UUID) (bool, error)

	// ExpireUnpaidHolds cancels stale holds that never opened a payment.
	ExpireUnpaidHolds(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// Config tunes the booking lifecycle.
type Config struct {
	// PlatformFeeRate is the platform's cut of the booking total,
	// e.g. 0.10 for ten percent.
	PlatformFeeRate float64
}

type service struct {
	db           *gorm.DB
	repo         Repository
	scheduleRepo schedules.Repository
	paymentRepo  payments.Repository
	registry     *payments.Registry
	wallets      wallets.Service
	fieldDir     FieldDirectory
	guests       GuestAccounts
	publisher    events.Publisher
	config       Config
	log          *logger.Logger
}

// NewService creates the booking lifecycle service
func NewService(
	db *gorm.DB,
	repo Repository,
	scheduleRepo schedules.Repository,
	paymentRepo payments.Repository,
	registry *payments.Registry,
	walletService wallets.Service,
	fieldDir FieldDirectory,
	guests GuestAccounts,
	publisher events.Publisher,
	config Config,
	log *logger.Logger,
) Service {
	return &service{
		db:           db,
		repo:         repo,
		scheduleRepo: scheduleRepo,
		paymentRepo:  paymentRepo,
		registry:     registry,
		wallets:      walletService,
		fieldDir:     fieldDir,
		guests:       guests,
		publisher:    publisher,
		config:       config,
		log:          log,
	}
}

// CreateBooking reserves the slot, creates the booking and, when a payment
// method is chosen, opens its transaction, all in one atomic unit of work.
// A losing race on the slot surfaces as a SlotConflict with nothing written.
func (s *service) CreateBooking(ctx context.Context, customerID uuid.UUID, req CreateBookingRequest) (*CreateBookingResponse, error) {
	fieldID, iv, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	field, err := s.fieldDir.GetField(ctx, fieldID)
	if err != nil {
		return nil, apperrors.Validation("field %s not found", req.FieldID)
	}
	if !field.Active {
		return nil, apperrors.Validation("field %s is not accepting bookings", req.FieldID)
	}
	if iv.Start < field.OpenTime || iv.End > field.CloseTime {
		return nil, apperrors.Validation("interval %s is outside operating hours %s-%s", iv, field.OpenTime, field.CloseTime)
	}
	if req.Method != "" {
		if _, err := s.registry.Get(req.Method); err != nil {
			return nil, apperrors.Validation("unsupported payment method %q", req.Method)
		}
	}

	total, fee := quote(field.PricePerHour, iv, s.config.PlatformFeeRate)
	booking := &Booking{
		ID:            uuid.New(),
		FieldID:       field.ID,
		OwnerID:       field.OwnerID,
		CustomerID:    customerID,
		Date:          req.Date,
		StartTime:     iv.Start,
		EndTime:       iv.End,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		BookingAmount: total - fee,
		PlatformFee:   fee,
		TotalPrice:    total,
	}

	var txn *payments.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.scheduleRepo.ReserveTx(tx, field.ID, req.Date, iv); err != nil {
			return err
		}
		if req.Method != "" {
			txn = s.newTransaction(booking, req.Method)
			if err := s.paymentRepo.CreateTx(tx, txn); err != nil {
				return err
			}
			txnID := txn.ID
			booking.TransactionID = &txnID
		}
		return s.repo.CreateTx(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.String("field_id", field.ID.String()),
		slog.String("date", booking.Date),
		slog.String("interval", iv.String()))

	return s.checkoutResponse(ctx, booking, txn), nil
}

// CreateGuestBooking provisions a guest customer account first, then runs
// the normal creation path.
func (s *service) CreateGuestBooking(ctx context.Context, req GuestBookingRequest) (*CreateBookingResponse, error) {
	if s.guests == nil {
		return nil, apperrors.Validation("guest checkout is not enabled")
	}
	customerID, err := s.guests.CreateGuestAccount(ctx, req.Email, req.Name, req.Phone)
	if err != nil {
		return nil, apperrors.Validation("guest account could not be created: %v", err)
	}
	return s.CreateBooking(ctx, customerID, req.CreateBookingRequest)
}

// InitiatePayment opens the transaction for a hold created without a
// payment method.
func (s *service) InitiatePayment(ctx context.Context, customerID, bookingID uuid.UUID, method string) (*CreateBookingResponse, error) {
	if _, err := s.registry.Get(method); err != nil {
		return nil, apperrors.Validation("unsupported payment method %q", method)
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != customerID {
		return nil, apperrors.Validation("booking %s does not belong to this customer", bookingID)
	}

	var txn *payments.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn = s.newTransaction(booking, method)
		if err := s.paymentRepo.CreateTx(tx, txn); err != nil {
			return err
		}
		attached, err := s.repo.SetTransactionTx(tx, booking.ID, txn.ID)
		if err != nil {
			return err
		}
		if !attached {
			return apperrors.State("booking", booking.Status.String(), "payment opened")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	txnID := txn.ID
	booking.TransactionID = &txnID

	return s.checkoutResponse(ctx, booking, txn), nil
}

func (s *service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListUserBookings(ctx context.Context, customerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	return s.repo.ListByCustomer(ctx, customerID, query)
}

// CancelBooking is the customer-initiated cancellation. It runs the same
// path as payment failure and the sweeper.
func (s *service) CancelBooking(ctx context.Context, bookingID, customerID uuid.UUID) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.CustomerID != customerID {
		return apperrors.Validation("booking %s does not belong to this customer", bookingID)
	}
	return s.CancelFromPayment(ctx, bookingID, ReasonCustomerCancel)
}

// CheckIn drives CONFIRMED -> COMPLETED and moves the owner's share out of
// the platform balance. Idempotent for repeated check-in confirmations.
func (s *service) CheckIn(ctx context.Context, bookingID, ownerID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.repo.GetByIDTx(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.OwnerID != ownerID {
			return apperrors.Validation("booking %s does not belong to this facility", bookingID)
		}
		if booking.Status == StatusCompleted {
			return nil
		}

		swapped, err := s.repo.UpdateStatusIfTx(tx, bookingID, []Status{StatusConfirmed}, StatusCompleted, "", "")
		if err != nil {
			return err
		}
		if !swapped {
			return apperrors.State("booking", booking.Status.String(), StatusCompleted.String())
		}
		return s.wallets.SettleCheckInTx(tx, booking.ID, booking.OwnerID, booking.BookingAmount)
	})
}

// RefundBooking returns a captured payment to the customer. The paid ->
// refunded swap on the booking is the idempotency guard; the ledger debit
// and any external gateway call happen behind it.
func (s *service) RefundBooking(ctx context.Context, bookingID uuid.UUID, destination wallets.RefundDestination, amount int64) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	txn, err := s.paymentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("booking %s has no payment transaction: %w", bookingID, err)
	}
	if txn.Status != payments.StatusSucceeded {
		return apperrors.State("transaction", txn.Status.String(), "refunded")
	}
	if amount <= 0 {
		amount = booking.TotalPrice
	}
	if amount > booking.TotalPrice {
		return apperrors.Validation("refund amount %d exceeds booking total %d", amount, booking.TotalPrice)
	}

	marked := s.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND payment_status = ?", bookingID, PaymentPaid).
		Update("payment_status", PaymentRefunded)
	if marked.Error != nil {
		return marked.Error
	}
	if marked.RowsAffected == 0 {
		return apperrors.State("booking payment", string(booking.PaymentStatus), string(PaymentRefunded))
	}

	if err := s.wallets.Refund(ctx, wallets.RefundRequest{
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		Method:      txn.Method,
		ExternalRef: txn.ExternalRef,
		Destination: destination,
		Amount:      amount,
	}); err != nil {
		revert := s.db.WithContext(ctx).Model(&Booking{}).
			Where("id = ? AND payment_status = ?", bookingID, PaymentRefunded).
			Update("payment_status", PaymentPaid)
		if revert.Error != nil {
			s.log.Error("refund mark revert failed, booking left marked refunded",
				slog.String("booking_id", bookingID.String()),
				slog.Any("error", revert.Error))
		}
		return err
	}
	return nil
}

// ConfirmFromPayment drives PENDING -> CONFIRMED together with the ledger
// settlement in one atomic unit of work. The paired transaction is
// re-verified inside the transaction; a stale or forged event cannot
// confirm a booking whose payment did not actually succeed.
func (s *service) ConfirmFromPayment(ctx context.Context, bookingID uuid.UUID) error {
	var confirmed *Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.repo.GetByIDTx(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == StatusConfirmed || booking.Status == StatusCompleted {
			return nil
		}
		if !booking.Status.CanTransition(StatusConfirmed) {
			return apperrors.State("booking", booking.Status.String(), StatusConfirmed.String())
		}

		txn, err := s.paymentRepo.GetByBookingIDTx(tx, bookingID)
		if err != nil {
			return fmt.Errorf("booking %s has no payment transaction: %w", bookingID, err)
		}
		if txn.Status != payments.StatusSucceeded {
			return apperrors.State("transaction", txn.Status.String(), payments.StatusSucceeded.String())
		}

		swapped, err := s.repo.UpdateStatusIfTx(tx, bookingID, []Status{StatusPending}, StatusConfirmed, PaymentPaid, "")
		if err != nil {
			return err
		}
		if !swapped {
			// Lost to a concurrent confirmation; that writer settles.
			return nil
		}

		if err := s.wallets.SettleBookingPaymentTx(tx, wallets.Settlement{
			BookingID:     booking.ID,
			CustomerID:    booking.CustomerID,
			OwnerID:       booking.OwnerID,
			TotalPrice:    booking.TotalPrice,
			BookingAmount: booking.BookingAmount,
			Method:        txn.Method,
		}); err != nil {
			return err
		}
		confirmed = booking
		return nil
	})
	if err != nil || confirmed == nil {
		return err
	}

	s.publish(ctx, events.BookingConfirmed, confirmed, "")
	s.log.Info("booking confirmed",
		slog.String("booking_id", confirmed.ID.String()),
		slog.Int64("total_price", confirmed.TotalPrice))
	return nil
}

// CancelFromPayment is the single cancellation path shared by payment
// failure, expiry, manual cancellation and the sweeper. The status
// transition and the slot release commit together.
func (s *service) CancelFromPayment(ctx context.Context, bookingID uuid.UUID, reason string) error {
	var cancelled *Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.repo.GetByIDTx(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == StatusCancelled {
			return nil
		}
		if !booking.Status.CanTransition(StatusCancelled) {
			return apperrors.State("booking", booking.Status.String(), StatusCancelled.String())
		}

		swapped, err := s.repo.UpdateStatusIfTx(tx, bookingID, []Status{StatusPending}, StatusCancelled, "", reason)
		if err != nil {
			return err
		}
		if !swapped {
			return nil
		}

		// Park any open transaction so a late gateway success cannot
		// resurrect the booking.
		if booking.TransactionID != nil {
			parked, err := s.paymentRepo.UpdateStatusIfTx(tx, *booking.TransactionID,
				[]payments.Status{payments.StatusPending, payments.StatusProcessing},
				payments.StatusCancelled, "", reason)
			if err != nil {
				return err
			}
			if !parked {
				txn, err := s.paymentRepo.GetByBookingIDTx(tx, bookingID)
				if err != nil {
					return err
				}
				if txn.Status == payments.StatusSucceeded {
					// The payment was captured first; rolling back here
					// lets the confirmation path settle the money.
					return apperrors.State("transaction", txn.Status.String(), payments.StatusCancelled.String())
				}
			}
		}

		released, err := s.scheduleRepo.ReleaseTx(tx, booking.FieldID, booking.Date, booking.Interval())
		if err != nil {
			return err
		}
		if !released {
			s.log.Warn("cancelled booking had no reserved interval",
				slog.String("booking_id", bookingID.String()),
				slog.String("interval", booking.Interval().String()))
		}
		cancelled = booking
		return nil
	})
	if err != nil || cancelled == nil {
		return err
	}

	s.publish(ctx, events.BookingCancelled, cancelled, reason)
	s.log.Info("booking cancelled",
		slog.String("booking_id", cancelled.ID.String()),
		slog.String("reason", reason))
	return nil
}

func (s *service) IsConfirmed(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return booking.Status == StatusConfirmed || booking.Status == StatusCompleted, nil
}

// ExpireUnpaidHolds cancels stale holds one by one; a failure on one record
// never blocks the rest of the sweep.
func (s *service) ExpireUnpaidHolds(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	holds, err := s.repo.FindUnpaidHolds(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, hold := range holds {
		if err := s.CancelFromPayment(ctx, hold.ID, ReasonUnpaidHold); err != nil {
			s.log.Warn("unpaid hold cancellation failed",
				slog.String("booking_id", hold.ID.String()),
				slog.Any("error", err))
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *service) validateRequest(req CreateBookingRequest) (uuid.UUID, schedules.Interval, error) {
	fieldID, err := uuid.Parse(req.FieldID)
	if err != nil {
		return uuid.Nil, schedules.Interval{}, apperrors.Validation("malformed field id %q", req.FieldID)
	}
	if _, err := time.Parse(schedules.DateLayout, req.Date); err != nil {
		return uuid.Nil, schedules.Interval{}, apperrors.Validation("malformed date %q, expected YYYY-MM-DD", req.Date)
	}
	iv := schedules.Interval{Start: req.StartTime, End: req.EndTime}
	if err := iv.Validate(); err != nil {
		return uuid.Nil, schedules.Interval{}, err
	}
	return fieldID, iv, nil
}

func (s *service) newTransaction(booking *Booking, method string) *payments.Transaction {
	bookingID := booking.ID
	return &payments.Transaction{
		ID:         uuid.New(),
		BookingID:  &bookingID,
		CustomerID: booking.CustomerID,
		Amount:     booking.TotalPrice,
		Method:     method,
		Status:     payments.StatusPending,
		OrderRef:   newOrderRef(),
	}
}

// checkoutResponse fetches the hosted payment link outside the committed
// transaction. A gateway hiccup here is not fatal: the client can poll and
// retry while the transaction stays PENDING.
func (s *service) checkoutResponse(ctx context.Context, booking *Booking, txn *payments.Transaction) *CreateBookingResponse {
	resp := &CreateBookingResponse{Booking: booking}
	if txn == nil {
		return resp
	}
	resp.OrderRef = txn.OrderRef

	adapter, err := s.registry.Get(txn.Method)
	if err != nil {
		return resp
	}
	url, err := adapter.CheckoutURL(ctx, txn.OrderRef, txn.Amount, fmt.Sprintf("SportZone booking %s", booking.ID))
	if err != nil {
		s.log.Warn("checkout link unavailable",
			slog.String("order_ref", txn.OrderRef),
			slog.Any("error", err))
		return resp
	}
	resp.PaymentURL = url
	return resp
}

func (s *service) publish(ctx context.Context, eventType events.Type, booking *Booking, reason string) {
	evt := events.Event{
		Type:       eventType,
		CustomerID: booking.CustomerID,
		Amount:     booking.TotalPrice,
		Reason:     reason,
	}
	bookingID := booking.ID
	evt.BookingID = &bookingID
	if booking.TransactionID != nil {
		evt.PaymentID = booking.TransactionID
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Error("booking event publish failed",
			slog.String("booking_id", booking.ID.String()),
			slog.String("event_type", string(eventType)),
			slog.Any("error", err))
	}
}

// quote prices an interval: whole-VND total from the hourly rate, platform
// fee rounded half-up from the configured rate.
func quote(pricePerHour int64, iv schedules.Interval, feeRate float64) (total, fee int64) {
	start, _ := time.Parse(schedules.TimeLayout, iv.Start)
	end, _ := time.Parse(schedules.TimeLayout, iv.End)
	minutes := int64(end.Sub(start).Minutes())
	total = pricePerHour * minutes / 60
	fee = int64(math.Round(float64(total) * feeRate))
	return total, fee
}

// newOrderRef produces a unique all-digit gateway order reference; PayOS
// order codes must be numeric.
func newOrderRef() string {
	return fmt.Sprintf("%d%03d", time.Now().UnixMilli(), rand.Intn(1000))
}
