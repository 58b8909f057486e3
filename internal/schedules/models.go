package schedules

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// DateLayout is the canonical timezone-free calendar date representation.
// Schedules are keyed by bare dates, never timestamps, so midnight handling
// can never shift a booking across days.
const DateLayout = "2006-01-02"

// TimeLayout is the canonical interval bound format. Zero-padded 24-hour
// times compare lexically the same way they compare temporally.
const TimeLayout = "15:04"

// Interval is a half-open [Start, End) time range within one calendar date.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// Equal reports whether both bounds match exactly.
func (i Interval) Equal(other Interval) bool {
	return i.Start == other.Start && i.End == other.End
}

// Validate checks bound format and ordering.
func (i Interval) Validate() error {
	if _, err := time.Parse(TimeLayout, i.Start); err != nil {
		return apperrors.Validation("invalid interval start %q", i.Start)
	}
	if _, err := time.Parse(TimeLayout, i.End); err != nil {
		return apperrors.Validation("invalid interval end %q", i.End)
	}
	if i.Start >= i.End {
		return apperrors.Validation("interval start %s must be before end %s", i.Start, i.End)
	}
	return nil
}

func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", i.Start, i.End)
}

// Schedule is the per-(field, date) availability record. BookedIntervals is
// the authoritative list of reserved ranges; Version strictly increases on
// every successful mutation and guards all conditional writes.
type Schedule struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FieldID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_schedules_field_date" json:"field_id"`
	Date            string         `gorm:"type:varchar(10);not null;uniqueIndex:idx_schedules_field_date" json:"date"`
	Version         int64          `gorm:"not null;default:0" json:"version"`
	BookedIntervals datatypes.JSON `gorm:"type:jsonb" json:"booked_intervals"`
	IsHoliday       bool           `gorm:"not null;default:false" json:"is_holiday"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName sets the table name for Schedule
func (Schedule) TableName() string {
	return "schedules"
}

// Intervals decodes the booked interval list.
func (s *Schedule) Intervals() ([]Interval, error) {
	if len(s.BookedIntervals) == 0 {
		return nil, nil
	}
	var intervals []Interval
	if err := json.Unmarshal(s.BookedIntervals, &intervals); err != nil {
		return nil, fmt.Errorf("corrupt booked_intervals on schedule %s: %w", s.ID, err)
	}
	return intervals, nil
}

// SetIntervals encodes the booked interval list.
func (s *Schedule) SetIntervals(intervals []Interval) error {
	raw, err := json.Marshal(intervals)
	if err != nil {
		return err
	}
	s.BookedIntervals = raw
	return nil
}

// FindOverlap returns the first booked interval overlapping iv, if any.
func (s *Schedule) FindOverlap(iv Interval) (*Interval, error) {
	intervals, err := s.Intervals()
	if err != nil {
		return nil, err
	}
	for idx := range intervals {
		if intervals[idx].Overlaps(iv) {
			return &intervals[idx], nil
		}
	}
	return nil, nil
}
