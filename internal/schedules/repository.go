package schedules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Repository owns all Schedule mutation. The Tx variants run inside a caller
// transaction so slot state can change atomically with booking and ledger
// writes; no other package writes schedule rows directly.
type Repository interface {
	GetByFieldAndDate(ctx context.Context, fieldID uuid.UUID, date string) (*Schedule, error)

	// Reserve upserts the (field, date) schedule and appends iv, guarded by
	// the version observed at conflict-check time.
	Reserve(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) (*Schedule, error)

	// Release removes every interval matching iv's exact bounds. Idempotent.
	Release(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) error

	// Tx-scoped variants for multi-entity atomic units.
	ReserveTx(tx *gorm.DB, fieldID uuid.UUID, date string, iv Interval) (*Schedule, error)
	ReleaseTx(tx *gorm.DB, fieldID uuid.UUID, date string, iv Interval) (bool, error)

	SetHoliday(ctx context.Context, fieldID uuid.UUID, date string, holiday bool) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByFieldAndDate(ctx context.Context, fieldID uuid.UUID, date string) (*Schedule, error) {
	var schedule Schedule
	err := r.db.WithContext(ctx).
		Where("field_id = ? AND date = ?", fieldID, date).
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *repository) Reserve(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) (*Schedule, error) {
	var out *Schedule
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := r.ReserveTx(tx, fieldID, date, iv)
		if err != nil {
			return err
		}
		out = schedule
		return nil
	})
	return out, err
}

// ReserveTx is the conflict-check-then-conditional-append core. The overlap
// test runs against the row state read inside the transaction, and the append
// is conditioned on the version observed at that read: a concurrent writer
// that advanced the version first makes RowsAffected come back 0, which
// surfaces as a slot conflict rather than a lost update.
func (r *repository) ReserveTx(tx *gorm.DB, fieldID uuid.UUID, date string, iv Interval) (*Schedule, error) {
	schedule, err := r.getOrCreateTx(tx, fieldID, date)
	if err != nil {
		return nil, err
	}

	if schedule.IsHoliday {
		return nil, apperrors.SlotConflict("field %s is closed on %s", fieldID, date)
	}

	overlap, err := schedule.FindOverlap(iv)
	if err != nil {
		return nil, err
	}
	if overlap != nil {
		return nil, apperrors.SlotConflict("interval %s overlaps booked interval %s on %s", iv, overlap, date)
	}

	intervals, err := schedule.Intervals()
	if err != nil {
		return nil, err
	}
	next := &Schedule{}
	*next = *schedule
	if err := next.SetIntervals(append(intervals, iv)); err != nil {
		return nil, err
	}

	result := tx.Model(&Schedule{}).
		Where("id = ? AND version = ?", schedule.ID, schedule.Version).
		Updates(map[string]interface{}{
			"booked_intervals": next.BookedIntervals,
			"version":          schedule.Version + 1,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.SlotConflict("schedule %s advanced past version %d", schedule.ID, schedule.Version)
	}

	next.Version = schedule.Version + 1
	return next, nil
}

func (r *repository) Release(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := r.ReleaseTx(tx, fieldID, date, iv)
		return err
	})
}

// ReleaseTx removes all intervals matching iv's bounds under the same
// version guard. Returns false when nothing matched; the caller logs that
// as a warning, not an error.
func (r *repository) ReleaseTx(tx *gorm.DB, fieldID uuid.UUID, date string, iv Interval) (bool, error) {
	var schedule Schedule
	err := tx.Where("field_id = ? AND date = ?", fieldID, date).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	intervals, err := schedule.Intervals()
	if err != nil {
		return false, err
	}

	kept := make([]Interval, 0, len(intervals))
	removed := false
	for _, existing := range intervals {
		if existing.Equal(iv) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}

	next := &Schedule{}
	*next = schedule
	if err := next.SetIntervals(kept); err != nil {
		return false, err
	}

	result := tx.Model(&Schedule{}).
		Where("id = ? AND version = ?", schedule.ID, schedule.Version).
		Updates(map[string]interface{}{
			"booked_intervals": next.BookedIntervals,
			"version":          schedule.Version + 1,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, apperrors.SlotConflict("schedule %s advanced past version %d during release", schedule.ID, schedule.Version)
	}
	return true, nil
}

func (r *repository) SetHoliday(ctx context.Context, fieldID uuid.UUID, date string, holiday bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := r.getOrCreateTx(tx, fieldID, date)
		if err != nil {
			return err
		}
		return tx.Model(&Schedule{}).
			Where("id = ?", schedule.ID).
			Updates(map[string]interface{}{
				"is_holiday": holiday,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

// getOrCreateTx lazily creates the schedule row on first booking attempt for
// a (field, date) pair. A concurrent creator losing the unique-index race
// falls back to re-reading the winner's row.
func (r *repository) getOrCreateTx(tx *gorm.DB, fieldID uuid.UUID, date string) (*Schedule, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, apperrors.Validation("invalid schedule date %q", date)
	}

	var schedule Schedule
	err := tx.Where("field_id = ? AND date = ?", fieldID, date).First(&schedule).Error
	if err == nil {
		return &schedule, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	schedule = Schedule{
		ID:              uuid.New(),
		FieldID:         fieldID,
		Date:            date,
		Version:         0,
		BookedIntervals: []byte("[]"),
	}
	if err := tx.Create(&schedule).Error; err != nil {
		var existing Schedule
		if lookupErr := tx.Where("field_id = ? AND date = ?", fieldID, date).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create schedule for field %s on %s: %w", fieldID, date, err)
	}
	return &schedule, nil
}
