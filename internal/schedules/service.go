package schedules

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/constants"
	"github.com/MNhat168/sport-zone-sub003/pkg/cache"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// Operating hours bound the derived free intervals returned to clients.
const (
	dayOpen  = "06:00"
	dayClose = "22:00"
)

// Service interface defines the contract for slot availability logic
type Service interface {
	Reserve(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) (*Schedule, error)
	Release(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) error
	GetAvailability(ctx context.Context, fieldID uuid.UUID, date string) (*Availability, error)
	SetHoliday(ctx context.Context, fieldID uuid.UUID, date string, holiday bool) error
}

// Availability is the client-facing view of one schedule day.
type Availability struct {
	FieldID       uuid.UUID  `json:"field_id"`
	Date          string     `json:"date"`
	IsHoliday     bool       `json:"is_holiday"`
	BookedSlots   []Interval `json:"booked_slots"`
	FreeSlots     []Interval `json:"free_slots"`
	ScheduleEpoch int64      `json:"schedule_epoch"`
}

type service struct {
	repo  Repository
	cache cache.Service
	log   *logger.Logger
}

// NewService creates a new schedule service instance
func NewService(repo Repository, cacheService cache.Service, log *logger.Logger) Service {
	return &service{repo: repo, cache: cacheService, log: log}
}

func (s *service) Reserve(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) (*Schedule, error) {
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	schedule, err := s.repo.Reserve(ctx, fieldID, date, iv)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, fieldID, date)
	return schedule, nil
}

func (s *service) Release(ctx context.Context, fieldID uuid.UUID, date string, iv Interval) error {
	if err := s.repo.Release(ctx, fieldID, date, iv); err != nil {
		return err
	}
	s.invalidate(ctx, fieldID, date)
	return nil
}

func (s *service) GetAvailability(ctx context.Context, fieldID uuid.UUID, date string) (*Availability, error) {
	key := availabilityKey(fieldID, date)

	var out Availability
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &out); err == nil {
			return &out, nil
		}
	}

	schedule, err := s.repo.GetByFieldAndDate(ctx, fieldID, date)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// No schedule row exists until the first booking; the day is wide open.
		out = Availability{
			FieldID:     fieldID,
			Date:        date,
			BookedSlots: []Interval{},
			FreeSlots:   freeSlots(nil, false),
		}
	case err != nil:
		return nil, err
	default:
		booked, err := schedule.Intervals()
		if err != nil {
			return nil, err
		}
		out = Availability{
			FieldID:       fieldID,
			Date:          date,
			IsHoliday:     schedule.IsHoliday,
			BookedSlots:   booked,
			FreeSlots:     freeSlots(booked, schedule.IsHoliday),
			ScheduleEpoch: schedule.Version,
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &out, cache.AvailabilityTTL); err != nil {
			s.log.Warn("availability cache set failed",
				slog.String("field_id", fieldID.String()),
				slog.String("date", date),
				slog.Any("error", err))
		}
	}
	return &out, nil
}

func (s *service) SetHoliday(ctx context.Context, fieldID uuid.UUID, date string, holiday bool) error {
	if err := s.repo.SetHoliday(ctx, fieldID, date, holiday); err != nil {
		return err
	}
	s.invalidate(ctx, fieldID, date)
	return nil
}

func (s *service) invalidate(ctx context.Context, fieldID uuid.UUID, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, availabilityKey(fieldID, date)); err != nil {
		// Stale cache self-heals on TTL expiry; mutation already committed.
		s.log.Warn("availability cache invalidation failed",
			slog.String("field_id", fieldID.String()),
			slog.String("date", date),
			slog.Any("error", err))
	}
}

func availabilityKey(fieldID uuid.UUID, date string) string {
	return constants.BuildAvailabilityKey(fieldID.String(), date)
}

// freeSlots derives the complement of booked intervals within operating hours.
func freeSlots(booked []Interval, holiday bool) []Interval {
	if holiday {
		return nil
	}
	sorted := make([]Interval, len(booked))
	copy(sorted, booked)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var free []Interval
	cursor := dayOpen
	for _, iv := range sorted {
		if iv.Start > cursor {
			free = append(free, Interval{Start: cursor, End: iv.Start})
		}
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	if cursor < dayClose {
		free = append(free, Interval{Start: cursor, End: dayClose})
	}
	return free
}
