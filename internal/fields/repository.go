package fields

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Repository interface defines the contract for field data access
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Field, error)
	List(ctx context.Context, query ListQuery) ([]Field, int64, error)
	Create(ctx context.Context, field *Field) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Field, error) {
	var field Field
	err := r.db.WithContext(ctx).First(&field, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &field, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]Field, int64, error) {
	q := r.db.WithContext(ctx).Model(&Field{}).Where("active = ?", true)
	if query.Sport != "" {
		q = q.Where("sport = ?", query.Sport)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := query.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var result []Field
	err := q.Order("name ASC").Limit(limit).Offset(query.Offset).Find(&result).Error
	return result, total, err
}

func (r *repository) Create(ctx context.Context, field *Field) error {
	if field.ID == uuid.Nil {
		field.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(field).Error
}
