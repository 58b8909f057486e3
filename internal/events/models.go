package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names an internal event topic.
type Type string

const (
	PaymentSuccess          Type = "payment.success"
	PaymentFailed           Type = "payment.failed"
	PaymentExpired          Type = "payment.expired"
	BookingConfirmed        Type = "booking.confirmed"
	BookingCancelled        Type = "booking.cancelled"
	WalletTransferCompleted Type = "wallet.transfer.completed"
)

// AllTypes lists every topic a consumer group subscribes to.
func AllTypes() []Type {
	return []Type{
		PaymentSuccess,
		PaymentFailed,
		PaymentExpired,
		BookingConfirmed,
		BookingCancelled,
		WalletTransferCompleted,
	}
}

// Event is the payload carried on every internal topic.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       Type       `json:"type"`
	PaymentID  *uuid.UUID `json:"payment_id,omitempty"`
	BookingID  *uuid.UUID `json:"booking_id,omitempty"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Amount     int64      `json:"amount"`
	Method     string     `json:"method"`
	Reason     string     `json:"reason,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// ToJSON serializes the event for the wire.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event from the wire.
func FromJSON(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// PartitionKey routes every event for one payment (or booking) to the same
// partition so deliveries stay ordered per transaction.
func (e *Event) PartitionKey() string {
	if e.PaymentID != nil {
		return e.PaymentID.String()
	}
	if e.BookingID != nil {
		return e.BookingID.String()
	}
	return e.CustomerID.String()
}

// Publisher is the narrow producer contract consumed by services.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Handler consumes one decoded event. Errors are logged and the offset is
// committed anyway; a dropped booking update is re-driven by the payment
// reconciler's fallback check, so handlers must be idempotent.
type Handler func(ctx context.Context, evt *Event) error
