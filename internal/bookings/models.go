package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
)

// Booking defines the main booking structure. A booking always references
// exactly one schedule interval and at most one payment transaction; a
// cancellation is a terminal status, never a delete.
type Booking struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FieldID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"field_id"`
	OwnerID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"owner_id"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	Date          string     `gorm:"type:varchar(10);not null;index:idx_bookings_field_date" json:"date"`
	StartTime     string     `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime       string     `gorm:"type:varchar(5);not null" json:"end_time"`
	Status        Status     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	BookingAmount int64      `gorm:"not null" json:"booking_amount"`
	PlatformFee   int64      `gorm:"not null" json:"platform_fee"`
	TotalPrice    int64      `gorm:"not null" json:"total_price"`
	TransactionID *uuid.UUID `gorm:"type:uuid;index" json:"transaction_id,omitempty"`
	CancelReason  string     `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// Interval returns the booked time range.
func (b *Booking) Interval() schedules.Interval {
	return schedules.Interval{Start: b.StartTime, End: b.EndTime}
}

// CreateBookingRequest is the body for POST /bookings. Method may be left
// empty to hold the slot first and pick a payment method afterwards; the
// hold expires if no payment is opened in time.
type CreateBookingRequest struct {
	FieldID   string `json:"field_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Method    string `json:"method"`
}

// GuestBookingRequest is the body for POST /bookings/guest
type GuestBookingRequest struct {
	CreateBookingRequest
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CreateBookingResponse returns the opened booking and its payment handle.
type CreateBookingResponse struct {
	Booking    *Booking `json:"booking"`
	OrderRef   string   `json:"order_ref"`
	PaymentURL string   `json:"payment_url,omitempty"`
}

// BookingListQuery filters a customer's booking history.
type BookingListQuery struct {
	Status Status
	Limit  int
	Offset int
}
