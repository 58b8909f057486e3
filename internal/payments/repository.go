package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Repository owns Transaction persistence. Status transitions go through
// UpdateStatusIf, a compare-and-swap on the current status, so concurrent
// deliveries of the same gateway event cannot double-apply.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	CreateTx(tx *gorm.DB, txn *Transaction) error

	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByOrderRef(ctx context.Context, orderRef string) (*Transaction, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Transaction, error)
	GetByBookingIDTx(tx *gorm.DB, bookingID uuid.UUID) (*Transaction, error)

	// UpdateStatusIf conditionally moves the transaction from any of the
	// expected statuses to the target. Returns false when the row was not
	// in an expected status (already moved by a concurrent writer).
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected []Status, target Status, externalRef, failureReason string) (bool, error)
	UpdateStatusIfTx(tx *gorm.DB, id uuid.UUID, expected []Status, target Status, externalRef, failureReason string) (bool, error)

	// Sweeper queries.
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Transaction, error)
	FindConfirmedBookingPending(ctx context.Context, limit int) ([]Transaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, txn *Transaction) error {
	return r.CreateTx(r.db.WithContext(ctx), txn)
}

func (r *repository) CreateTx(tx *gorm.DB, txn *Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Status == "" {
		txn.Status = StatusPending
	}
	return tx.Create(txn).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var txn Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) GetByOrderRef(ctx context.Context, orderRef string) (*Transaction, error) {
	var txn Transaction
	err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Transaction, error) {
	return r.GetByBookingIDTx(r.db.WithContext(ctx), bookingID)
}

func (r *repository) GetByBookingIDTx(tx *gorm.DB, bookingID uuid.UUID) (*Transaction, error) {
	var txn Transaction
	err := tx.Where("booking_id = ?", bookingID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected []Status, target Status, externalRef, failureReason string) (bool, error) {
	return r.UpdateStatusIfTx(r.db.WithContext(ctx), id, expected, target, externalRef, failureReason)
}

func (r *repository) UpdateStatusIfTx(tx *gorm.DB, id uuid.UUID, expected []Status, target Status, externalRef, failureReason string) (bool, error) {
	if !target.IsValid() {
		return false, apperrors.Validation("invalid target transaction status %q", target)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	if target.IsTerminal() {
		updates["processed_at"] = now
	}
	if externalRef != "" {
		updates["external_ref"] = externalRef
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}

	result := tx.Model(&Transaction{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// FindConfirmedBookingPending surfaces the inconsistent shape where a
// booking already confirmed while its transaction is still PENDING.
func (r *repository) FindConfirmedBookingPending(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Joins("JOIN bookings ON bookings.id = transactions.booking_id").
		Where("transactions.status = ? AND bookings.status = ?", StatusPending, "CONFIRMED").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}
