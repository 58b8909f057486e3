package fields

import (
	"context"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Service interface defines the contract for field business logic
type Service interface {
	GetField(ctx context.Context, id uuid.UUID) (*Field, error)
	ListFields(ctx context.Context, query ListQuery) ([]Field, int64, error)
	GetAvailability(ctx context.Context, fieldID uuid.UUID, date string) (*schedules.Availability, error)
	SetHoliday(ctx context.Context, ownerID, fieldID uuid.UUID, date string, holiday bool) error
}

type service struct {
	repo      Repository
	schedules schedules.Service
}

func NewService(repo Repository, scheduleService schedules.Service) Service {
	return &service{repo: repo, schedules: scheduleService}
}

func (s *service) GetField(ctx context.Context, id uuid.UUID) (*Field, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListFields(ctx context.Context, query ListQuery) ([]Field, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *service) GetAvailability(ctx context.Context, fieldID uuid.UUID, date string) (*schedules.Availability, error) {
	if _, err := s.repo.GetByID(ctx, fieldID); err != nil {
		return nil, err
	}
	return s.schedules.GetAvailability(ctx, fieldID, date)
}

// SetHoliday blocks or unblocks a whole day. Only the owning facility may
// do this.
func (s *service) SetHoliday(ctx context.Context, ownerID, fieldID uuid.UUID, date string, holiday bool) error {
	field, err := s.repo.GetByID(ctx, fieldID)
	if err != nil {
		return err
	}
	if field.OwnerID != ownerID {
		return apperrors.Validation("field %s is not managed by this owner", fieldID)
	}
	return s.schedules.SetHoliday(ctx, fieldID, date, holiday)
}
