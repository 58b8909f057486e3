package wallets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Repository owns all wallet mutation. Credit/Debit are tx-scoped so callers
// can pair them with booking and transaction writes atomically; DebitTx is
// conditional and fails closed when the bucket cannot cover the amount.
type Repository interface {
	GetOrCreate(ctx context.Context, holderID uuid.UUID, role Role) (*Wallet, error)
	GetOrCreateTx(tx *gorm.DB, holderID uuid.UUID, role Role) (*Wallet, error)
	GetByHolder(ctx context.Context, holderID uuid.UUID, role Role) (*Wallet, error)

	CreditTx(tx *gorm.DB, walletID uuid.UUID, bucket Bucket, amount int64, bookingID *uuid.UUID, reason string) error
	DebitTx(tx *gorm.DB, walletID uuid.UUID, bucket Bucket, amount int64, bookingID *uuid.UUID, reason string) error

	ListEntries(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]Entry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreate(ctx context.Context, holderID uuid.UUID, role Role) (*Wallet, error) {
	var out *Wallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := r.GetOrCreateTx(tx, holderID, role)
		if err != nil {
			return err
		}
		out = wallet
		return nil
	})
	return out, err
}

func (r *repository) GetOrCreateTx(tx *gorm.DB, holderID uuid.UUID, role Role) (*Wallet, error) {
	if !role.IsValid() {
		return nil, apperrors.Validation("invalid wallet role %q", role)
	}

	var wallet Wallet
	err := tx.Where("holder_id = ? AND role = ?", holderID, role).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = Wallet{ID: uuid.New(), HolderID: holderID, Role: role}
	if err := tx.Create(&wallet).Error; err != nil {
		var existing Wallet
		if lookupErr := tx.Where("holder_id = ? AND role = ?", holderID, role).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create wallet for holder %s: %w", holderID, err)
	}
	return &wallet, nil
}

func (r *repository) GetByHolder(ctx context.Context, holderID uuid.UUID, role Role) (*Wallet, error) {
	var wallet Wallet
	err := r.db.WithContext(ctx).
		Where("holder_id = ? AND role = ?", holderID, role).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) CreditTx(tx *gorm.DB, walletID uuid.UUID, bucket Bucket, amount int64, bookingID *uuid.UUID, reason string) error {
	if amount <= 0 {
		return apperrors.Validation("credit amount must be positive, got %d", amount)
	}
	column, err := bucketColumn(bucket)
	if err != nil {
		return err
	}

	result := tx.Model(&Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("wallet %s not found for credit: %w", walletID, apperrors.ErrNotFound)
	}

	return r.appendEntry(tx, walletID, bucket, amount, bookingID, reason)
}

// DebitTx decrements a bucket only when the stored balance covers the amount.
// RowsAffected 0 on an existing wallet means the guard failed, which aborts
// the enclosing transaction with ErrInsufficientBalance.
func (r *repository) DebitTx(tx *gorm.DB, walletID uuid.UUID, bucket Bucket, amount int64, bookingID *uuid.UUID, reason string) error {
	if amount <= 0 {
		return apperrors.Validation("debit amount must be positive, got %d", amount)
	}
	column, err := bucketColumn(bucket)
	if err != nil {
		return err
	}

	result := tx.Model(&Wallet{}).
		Where("id = ? AND "+column+" >= ?", walletID, amount).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var wallet Wallet
		if err := tx.Where("id = ?", walletID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("wallet %s not found for debit: %w", walletID, apperrors.ErrNotFound)
			}
			return err
		}
		return fmt.Errorf("%w: wallet %s %s balance cannot cover %d", apperrors.ErrInsufficientBalance, walletID, bucket, amount)
	}

	return r.appendEntry(tx, walletID, bucket, -amount, bookingID, reason)
}

func (r *repository) ListEntries(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

func (r *repository) appendEntry(tx *gorm.DB, walletID uuid.UUID, bucket Bucket, amount int64, bookingID *uuid.UUID, reason string) error {
	entry := Entry{
		ID:        uuid.New(),
		WalletID:  walletID,
		BookingID: bookingID,
		Bucket:    bucket,
		Amount:    amount,
		Reason:    reason,
	}
	return tx.Create(&entry).Error
}

func bucketColumn(bucket Bucket) (string, error) {
	switch bucket {
	case BucketSystem:
		return "system_balance", nil
	case BucketPending:
		return "pending_balance", nil
	case BucketRefund:
		return "refund_balance", nil
	default:
		return "", apperrors.Validation("unknown wallet bucket %q", bucket)
	}
}
