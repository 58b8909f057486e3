package schedules

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/schedules.db?_pragma=busy_timeout(10000)"), &gorm.Config{})
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Schedule{}))
	return db
}

func TestReserveCreatesScheduleOnFirstBooking(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	fieldID := uuid.New()

	schedule, err := repo.Reserve(context.Background(), fieldID, "2026-09-01", Interval{"08:00", "09:00"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), schedule.Version)

	intervals, err := schedule.Intervals()
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, Interval{"08:00", "09:00"}, intervals[0])
}

func TestReserveRejectsOverlap(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"08:00", "10:00"})
	require.NoError(t, err)

	_, err = repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"09:00", "11:00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSlotConflict)
	assert.True(t, apperrors.IsRetryableByClient(err))
}

func TestReserveAllowsAdjacentIntervals(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"08:00", "09:00"})
	require.NoError(t, err)

	schedule, err := repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"09:00", "10:00"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), schedule.Version)

	intervals, err := schedule.Intervals()
	require.NoError(t, err)
	assert.Len(t, intervals, 2)
}

func TestReserveRejectsInvalidDate(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	_, err := repo.Reserve(context.Background(), uuid.New(), "01-09-2026", Interval{"08:00", "09:00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReserveRejectsHoliday(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	fieldID := uuid.New()
	ctx := context.Background()

	require.NoError(t, repo.SetHoliday(ctx, fieldID, "2026-09-01", true))

	_, err := repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"08:00", "09:00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSlotConflict)
}

func TestConcurrentReserveExactlyOneWinner(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	fieldID := uuid.New()
	iv := Interval{"18:00", "19:00"}

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Reserve(context.Background(), fieldID, "2026-09-01", iv)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrSlotConflict)
	}
	assert.Equal(t, 1, won)

	schedule, err := repo.GetByFieldAndDate(context.Background(), fieldID, "2026-09-01")
	require.NoError(t, err)
	intervals, err := schedule.Intervals()
	require.NoError(t, err)
	assert.Len(t, intervals, 1)
}

func TestReleaseRemovesExactMatchOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"08:00", "09:00"})
	require.NoError(t, err)
	_, err = repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"10:00", "11:00"})
	require.NoError(t, err)

	require.NoError(t, repo.Release(ctx, fieldID, "2026-09-01", Interval{"08:00", "09:00"}))

	schedule, err := repo.GetByFieldAndDate(ctx, fieldID, "2026-09-01")
	require.NoError(t, err)
	intervals, err := schedule.Intervals()
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, Interval{"10:00", "11:00"}, intervals[0])
}

func TestReleaseAbsentIntervalIsNoop(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := repo.Reserve(ctx, fieldID, "2026-09-01", Interval{"08:00", "09:00"})
	require.NoError(t, err)

	var removed bool
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		removed, txErr = repo.ReleaseTx(tx, fieldID, "2026-09-01", Interval{"14:00", "15:00"})
		return txErr
	})
	require.NoError(t, err)
	assert.False(t, removed)

	// Release on a date with no schedule row at all
	err = db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		removed, txErr = repo.ReleaseTx(tx, fieldID, "2026-12-25", Interval{"08:00", "09:00"})
		return txErr
	})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReleaseThenRebookSameInterval(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	fieldID := uuid.New()
	ctx := context.Background()
	iv := Interval{"08:00", "09:00"}

	_, err := repo.Reserve(ctx, fieldID, "2026-09-01", iv)
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, fieldID, "2026-09-01", iv))

	schedule, err := repo.Reserve(ctx, fieldID, "2026-09-01", iv)
	require.NoError(t, err)
	assert.Equal(t, int64(3), schedule.Version)
}

func TestGetByFieldAndDateNotFound(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	_, err := repo.GetByFieldAndDate(context.Background(), uuid.New(), "2026-09-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
