package payments

import (
	"context"
	"fmt"
	"strings"
)

// CanonicalStatus is the gateway-agnostic payment outcome.
type CanonicalStatus string

const (
	CanonicalPaid      CanonicalStatus = "PAID"
	CanonicalCancelled CanonicalStatus = "CANCELLED"
	CanonicalExpired   CanonicalStatus = "EXPIRED"
	CanonicalPending   CanonicalStatus = "PENDING"
)

// CanonicalEvent is the normalized shape every adapter produces from a
// provider payload, regardless of which delivery channel carried it.
type CanonicalEvent struct {
	OrderRef    string          `json:"order_ref"`
	Status      CanonicalStatus `json:"status"`
	Amount      int64           `json:"amount"`
	ExternalRef string          `json:"external_ref"`
}

// TargetStatus maps the canonical outcome onto the transaction state machine.
func (e *CanonicalEvent) TargetStatus() Status {
	switch e.Status {
	case CanonicalPaid:
		return StatusSucceeded
	case CanonicalCancelled, CanonicalExpired:
		return StatusFailed
	default:
		return StatusProcessing
	}
}

// GatewayAdapter normalizes one payment provider's payloads and verifies
// their authenticity. Verify must never mutate state and must compare keyed
// hashes in constant time.
type GatewayAdapter interface {
	Name() string
	Verify(payload map[string]string, signature string) bool
	Normalize(payload map[string]string) (*CanonicalEvent, error)

	// CheckoutURL produces the hosted payment page for an open order.
	CheckoutURL(ctx context.Context, orderRef string, amount int64, description string) (string, error)

	// Refund calls the provider's refund API for a captured payment.
	Refund(ctx context.Context, externalRef string, amount int64) error
}

// Registry holds the configured adapters keyed by method name.
type Registry struct {
	adapters map[string]GatewayAdapter
}

// NewRegistry creates an adapter registry
func NewRegistry(adapters ...GatewayAdapter) *Registry {
	r := &Registry{adapters: make(map[string]GatewayAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[strings.ToLower(a.Name())] = a
	}
	return r
}

// Get returns the adapter for a payment method.
func (r *Registry) Get(method string) (GatewayAdapter, error) {
	adapter, ok := r.adapters[strings.ToLower(method)]
	if !ok {
		return nil, fmt.Errorf("no gateway adapter registered for method %q", method)
	}
	return adapter, nil
}

// Methods lists registered method names.
func (r *Registry) Methods() []string {
	methods := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		methods = append(methods, name)
	}
	return methods
}
