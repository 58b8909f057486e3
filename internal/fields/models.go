package fields

import (
	"time"

	"github.com/google/uuid"
)

// Field is the bookable resource: one court or pitch owned by a facility
// owner. Pricing and operating hours feed the booking quote; everything
// else about facility management lives outside this service.
type Field struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name         string    `gorm:"type:varchar(120);not null" json:"name"`
	Sport        string    `gorm:"type:varchar(40);not null;index" json:"sport"`
	Location     string    `gorm:"type:varchar(255)" json:"location"`
	PricePerHour int64     `gorm:"not null" json:"price_per_hour"`
	OpenTime     string    `gorm:"type:varchar(5);not null;default:'06:00'" json:"open_time"`
	CloseTime    string    `gorm:"type:varchar(5);not null;default:'22:00'" json:"close_time"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName sets the table name for Field
func (Field) TableName() string {
	return "fields"
}

// ListQuery filters the field listing.
type ListQuery struct {
	Sport  string
	Limit  int
	Offset int
}
