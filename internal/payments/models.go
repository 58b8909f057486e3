package payments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the transaction lifecycle state. SUCCEEDED, FAILED and CANCELLED
// are terminal: a terminal transaction never transitions again, which is the
// idempotency boundary for duplicated or out-of-order gateway deliveries.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid checks if the transaction status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Transaction is the payment record owned by the reconciler. OrderRef is the
// reference handed to the gateway; ExternalRef is the gateway's own id for
// the payment, filled in when the first authentic event arrives.
type Transaction struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID     *uuid.UUID     `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	CustomerID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"customer_id"`
	Amount        int64          `gorm:"not null" json:"amount"`
	Method        string         `gorm:"type:varchar(20);not null" json:"method"`
	Status        Status         `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	OrderRef      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_ref"`
	ExternalRef   string         `gorm:"type:varchar(128);index" json:"external_ref,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	FailureReason string         `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName sets the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// IsVerificationOnly reports whether the transaction drives no booking.
func (t *Transaction) IsVerificationOnly() bool {
	return t.BookingID == nil
}
