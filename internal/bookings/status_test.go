package bookings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, Status("ARCHIVED").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name      string
		price     int64
		start     string
		end       string
		rate      float64
		wantTotal int64
		wantFee   int64
	}{
		{"one hour", 250000, "08:00", "09:00", 0.10, 250000, 25000},
		{"two hours", 250000, "18:00", "20:00", 0.10, 500000, 50000},
		{"ninety minutes", 250000, "08:00", "09:30", 0.10, 375000, 37500},
		{"half hour", 120000, "07:00", "07:30", 0.10, 60000, 6000},
		{"fee rounds half up", 333333, "08:00", "09:00", 0.10, 333333, 33333},
		{"zero rate", 250000, "08:00", "09:00", 0, 250000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, fee := quote(tt.price, intervalOf(tt.start, tt.end), tt.rate)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantFee, fee)
		})
	}
}
