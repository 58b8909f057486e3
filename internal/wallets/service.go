package wallets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// RefundGateway executes money movements that leave the platform: provider
// refunds and bank payouts. Implemented by the payments package; declared
// here to avoid a package cycle.
type RefundGateway interface {
	Refund(ctx context.Context, method, externalRef string, amount int64) error
	Payout(ctx context.Context, holderID uuid.UUID, amount int64) error
}

// Settlement carries the amounts moved when a booking's payment confirms.
type Settlement struct {
	BookingID     uuid.UUID
	CustomerID    uuid.UUID
	OwnerID       uuid.UUID
	TotalPrice    int64
	BookingAmount int64
	Method        string
}

// RefundDestination selects where a refund lands.
type RefundDestination string

const (
	RefundToBank   RefundDestination = "bank"
	RefundToCredit RefundDestination = "credit"
)

// Service interface defines the contract for ledger business logic
type Service interface {
	// Tx-scoped settlements, invoked inside the booking lifecycle's
	// atomic unit of work.
	SettleBookingPaymentTx(tx *gorm.DB, settlement Settlement) error
	SettleCheckInTx(tx *gorm.DB, bookingID, ownerID uuid.UUID, bookingAmount int64) error

	Refund(ctx context.Context, req RefundRequest) error
	Withdraw(ctx context.Context, customerID uuid.UUID, amount int64) error

	GetWallet(ctx context.Context, holderID uuid.UUID, role Role) (*Wallet, error)
	GetEntries(ctx context.Context, holderID uuid.UUID, role Role, limit, offset int) ([]Entry, error)
}

// RefundRequest describes one refund.
type RefundRequest struct {
	BookingID   uuid.UUID
	CustomerID  uuid.UUID
	Method      string
	ExternalRef string
	Destination RefundDestination
	Amount      int64
}

type service struct {
	db               *gorm.DB
	repo             Repository
	gateway          RefundGateway
	publisher        events.Publisher
	platformHolderID uuid.UUID
	log              *logger.Logger
}

// NewService creates a new ledger service instance
func NewService(db *gorm.DB, repo Repository, gateway RefundGateway, publisher events.Publisher, platformHolderID uuid.UUID, log *logger.Logger) Service {
	return &service{
		db:               db,
		repo:             repo,
		gateway:          gateway,
		publisher:        publisher,
		platformHolderID: platformHolderID,
		log:              log,
	}
}

// SettleBookingPaymentTx credits the platform system balance with the full
// booking total and the owner pending balance with the booking amount. Runs
// inside the caller's transaction and is guarded by the same idempotency
// boundary as the booking's CONFIRMED transition, so retries never re-apply.
func (s *service) SettleBookingPaymentTx(tx *gorm.DB, settlement Settlement) error {
	if settlement.TotalPrice <= 0 || settlement.BookingAmount <= 0 {
		return apperrors.Validation("settlement amounts must be positive")
	}
	if settlement.BookingAmount > settlement.TotalPrice {
		return apperrors.Validation("booking amount %d exceeds total %d", settlement.BookingAmount, settlement.TotalPrice)
	}

	platform, err := s.repo.GetOrCreateTx(tx, s.platformHolderID, RolePlatform)
	if err != nil {
		return err
	}
	owner, err := s.repo.GetOrCreateTx(tx, settlement.OwnerID, RoleOwner)
	if err != nil {
		return err
	}

	bookingID := settlement.BookingID
	if err := s.repo.CreditTx(tx, platform.ID, BucketSystem, settlement.TotalPrice, &bookingID, ReasonSettlement); err != nil {
		return fmt.Errorf("platform settlement credit failed: %w", err)
	}
	if err := s.repo.CreditTx(tx, owner.ID, BucketPending, settlement.BookingAmount, &bookingID, ReasonSettlement); err != nil {
		return fmt.Errorf("owner settlement credit failed: %w", err)
	}
	return nil
}

// SettleCheckInTx moves the booking amount from the platform system balance
// to the owner pending balance. The debit is conditional: an uncovered
// platform balance aborts the transfer with no partial application.
func (s *service) SettleCheckInTx(tx *gorm.DB, bookingID, ownerID uuid.UUID, bookingAmount int64) error {
	platform, err := s.repo.GetOrCreateTx(tx, s.platformHolderID, RolePlatform)
	if err != nil {
		return err
	}
	owner, err := s.repo.GetOrCreateTx(tx, ownerID, RoleOwner)
	if err != nil {
		return err
	}

	if err := s.repo.DebitTx(tx, platform.ID, BucketSystem, bookingAmount, &bookingID, ReasonCheckIn); err != nil {
		return err
	}
	return s.repo.CreditTx(tx, owner.ID, BucketPending, bookingAmount, &bookingID, ReasonCheckIn)
}

// Refund debits the platform system balance, then either credits the
// customer refund balance (credit destination) or calls the provider refund
// API (bank destination). The external call happens after the balance
// transaction commits: the committed debit is the source of truth and the
// provider call can be retried against it.
func (s *service) Refund(ctx context.Context, req RefundRequest) error {
	if req.Amount <= 0 {
		return apperrors.Validation("refund amount must be positive, got %d", req.Amount)
	}
	if req.Destination != RefundToBank && req.Destination != RefundToCredit {
		return apperrors.Validation("unknown refund destination %q", req.Destination)
	}

	bookingID := req.BookingID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		platform, err := s.repo.GetOrCreateTx(tx, s.platformHolderID, RolePlatform)
		if err != nil {
			return err
		}
		reason := ReasonRefundBank
		if req.Destination == RefundToCredit {
			reason = ReasonRefundCredit
		}
		if err := s.repo.DebitTx(tx, platform.ID, BucketSystem, req.Amount, &bookingID, reason); err != nil {
			return err
		}
		if req.Destination == RefundToCredit {
			customer, err := s.repo.GetOrCreateTx(tx, req.CustomerID, RoleCustomer)
			if err != nil {
				return err
			}
			return s.repo.CreditTx(tx, customer.ID, BucketRefund, req.Amount, &bookingID, reason)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if req.Destination == RefundToBank {
		if err := s.gateway.Refund(ctx, req.Method, req.ExternalRef, req.Amount); err != nil {
			// Balance mutation already committed; surface the gateway
			// failure so the refund can be retried against it.
			return fmt.Errorf("%w: provider refund for booking %s: %v", apperrors.ErrExternalGateway, req.BookingID, err)
		}
	}

	s.publishTransfer(ctx, req.BookingID, req.CustomerID, req.Amount, req.Method)
	return nil
}

// Withdraw requires a covering refund balance; the debit commits first and
// the external transfer is initiated afterwards.
func (s *service) Withdraw(ctx context.Context, customerID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperrors.Validation("withdraw amount must be positive, got %d", amount)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.GetOrCreateTx(tx, customerID, RoleCustomer)
		if err != nil {
			return err
		}
		return s.repo.DebitTx(tx, customer.ID, BucketRefund, amount, nil, ReasonWithdraw)
	})
	if err != nil {
		return err
	}

	if err := s.gateway.Payout(ctx, customerID, amount); err != nil {
		return fmt.Errorf("%w: payout for customer %s: %v", apperrors.ErrExternalGateway, customerID, err)
	}

	s.publishTransfer(ctx, uuid.Nil, customerID, amount, "payout")
	return nil
}

func (s *service) GetWallet(ctx context.Context, holderID uuid.UUID, role Role) (*Wallet, error) {
	return s.repo.GetByHolder(ctx, holderID, role)
}

func (s *service) GetEntries(ctx context.Context, holderID uuid.UUID, role Role, limit, offset int) ([]Entry, error) {
	wallet, err := s.repo.GetByHolder(ctx, holderID, role)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, wallet.ID, limit, offset)
}

func (s *service) publishTransfer(ctx context.Context, bookingID, customerID uuid.UUID, amount int64, method string) {
	if s.publisher == nil {
		return
	}
	evt := events.Event{
		Type:       events.WalletTransferCompleted,
		CustomerID: customerID,
		Amount:     amount,
		Method:     method,
	}
	if bookingID != uuid.Nil {
		evt.BookingID = &bookingID
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("wallet transfer event publish failed",
			slog.String("booking_id", bookingID.String()),
			slog.Any("error", err))
	}
}
