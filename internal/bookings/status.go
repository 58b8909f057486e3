package bookings

// Status is the booking lifecycle state, mutated only through the
// transition table below.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// IsValid checks if the booking status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransition reports whether the transition table allows s -> target.
// PENDING confirms or cancels; CONFIRMED only completes.
func (s Status) CanTransition(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusCompleted
	}
	return false
}

// PaymentStatus tracks the money side of a booking independently of the
// lifecycle state.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Cancellation reasons persisted on the record; user-visible strings.
const (
	ReasonPaymentFailed  = "payment failed"
	ReasonPaymentExpired = "payment expired"
	ReasonCustomerCancel = "cancelled by customer"
	ReasonUnpaidHold     = "payment not submitted in time"
)
