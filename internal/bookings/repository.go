package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Repository interface defines the contract for booking data access.
// Tx-scoped methods participate in the caller's atomic unit of work.
type Repository interface {
	CreateTx(tx *gorm.DB, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByIDTx(tx *gorm.DB, id uuid.UUID) (*Booking, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)

	// UpdateStatusIfTx performs the guarded status transition: the write
	// lands only if the stored status is still one of expected.
	UpdateStatusIfTx(tx *gorm.DB, id uuid.UUID, expected []Status, target Status, paymentStatus PaymentStatus, cancelReason string) (bool, error)

	// SetTransactionTx attaches the opened payment transaction to a hold.
	// Guarded: only a PENDING booking without a transaction accepts one.
	SetTransactionTx(tx *gorm.DB, id, txnID uuid.UUID) (bool, error)

	// FindUnpaidHolds returns PENDING bookings that reserved a slot but
	// never opened a transaction, older than the cutoff.
	FindUnpaidHolds(ctx context.Context, olderThan time.Time, limit int) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTx(tx *gorm.DB, booking *Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return tx.Create(booking).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *repository) GetByIDTx(tx *gorm.DB, id uuid.UUID) (*Booking, error) {
	return r.get(tx, id)
}

func (r *repository) get(db *gorm.DB, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := db.First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&Booking{}).Where("customer_id = ?", customerID)
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var result []Booking
	err := q.Order("created_at DESC").Limit(limit).Offset(query.Offset).Find(&result).Error
	return result, total, err
}

func (r *repository) UpdateStatusIfTx(tx *gorm.DB, id uuid.UUID, expected []Status, target Status, paymentStatus PaymentStatus, cancelReason string) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	if paymentStatus != "" {
		updates["payment_status"] = paymentStatus
	}
	switch target {
	case StatusCancelled:
		updates["cancelled_at"] = now
		if cancelReason != "" {
			updates["cancel_reason"] = cancelReason
		}
	case StatusCompleted:
		updates["completed_at"] = now
	}

	result := tx.Model(&Booking{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetTransactionTx(tx *gorm.DB, id, txnID uuid.UUID) (bool, error) {
	result := tx.Model(&Booking{}).
		Where("id = ? AND status = ? AND transaction_id IS NULL", id, StatusPending).
		Update("transaction_id", txnID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindUnpaidHolds(ctx context.Context, olderThan time.Time, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	var holds []Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND transaction_id IS NULL AND created_at < ?", StatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&holds).Error
	return holds, err
}
