package schedules

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

func TestFreeSlots(t *testing.T) {
	tests := []struct {
		name    string
		booked  []Interval
		holiday bool
		want    []Interval
	}{
		{
			name:   "empty day",
			booked: nil,
			want:   []Interval{{"06:00", "22:00"}},
		},
		{
			name:   "single booking mid day",
			booked: []Interval{{"08:00", "09:00"}},
			want:   []Interval{{"06:00", "08:00"}, {"09:00", "22:00"}},
		},
		{
			name:   "bookings out of order",
			booked: []Interval{{"18:00", "20:00"}, {"08:00", "09:00"}},
			want:   []Interval{{"06:00", "08:00"}, {"09:00", "18:00"}, {"20:00", "22:00"}},
		},
		{
			name:   "booking at open",
			booked: []Interval{{"06:00", "07:00"}},
			want:   []Interval{{"07:00", "22:00"}},
		},
		{
			name:   "booking at close",
			booked: []Interval{{"21:00", "22:00"}},
			want:   []Interval{{"06:00", "21:00"}},
		},
		{
			name:   "back to back bookings",
			booked: []Interval{{"08:00", "09:00"}, {"09:00", "10:00"}},
			want:   []Interval{{"06:00", "08:00"}, {"10:00", "22:00"}},
		},
		{
			name:    "holiday has no free slots",
			booked:  nil,
			holiday: true,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, freeSlots(tt.booked, tt.holiday))
		})
	}
}

func TestGetAvailabilityDerivesFromSchedule(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil, logger.New())
	fieldID := uuid.New()
	ctx := context.Background()

	_, err := svc.Reserve(ctx, fieldID, "2026-09-01", Interval{"08:00", "09:00"})
	require.NoError(t, err)

	availability, err := svc.GetAvailability(ctx, fieldID, "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, fieldID, availability.FieldID)
	assert.Equal(t, int64(1), availability.ScheduleEpoch)
	assert.Equal(t, []Interval{{"08:00", "09:00"}}, availability.BookedSlots)
	assert.Equal(t, []Interval{{"06:00", "08:00"}, {"09:00", "22:00"}}, availability.FreeSlots)
}

func TestGetAvailabilityForUnbookedDayIsFullyFree(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil, logger.New())
	fieldID := uuid.New()

	availability, err := svc.GetAvailability(context.Background(), fieldID, "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, fieldID, availability.FieldID)
	assert.Equal(t, "2026-09-01", availability.Date)
	assert.False(t, availability.IsHoliday)
	assert.Empty(t, availability.BookedSlots)
	assert.Equal(t, []Interval{{"06:00", "22:00"}}, availability.FreeSlots)
	assert.Equal(t, int64(0), availability.ScheduleEpoch)
}

func TestReserveValidatesInterval(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil, logger.New())

	_, err := svc.Reserve(context.Background(), uuid.New(), "2026-09-01", Interval{"10:00", "09:00"})
	require.Error(t, err)
}
