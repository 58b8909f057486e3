package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// BookingLifecycle is the narrow contract the reconciler needs from the
// bookings package (declared here to avoid a circular dependency). Both
// methods are idempotent: re-driving an already-settled booking is a no-op.
type BookingLifecycle interface {
	ConfirmFromPayment(ctx context.Context, bookingID uuid.UUID) error
	CancelFromPayment(ctx context.Context, bookingID uuid.UUID, reason string) error
	IsConfirmed(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

// Ack is the provider-facing acknowledgment body. Webhook handlers always
// respond 200 with one of these so the provider stops retrying.
type Ack struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

var (
	AckSuccess       = Ack{Code: "00", Desc: "success"}
	AckBadSignature  = Ack{Code: "97", Desc: "invalid signature"}
	AckInternalError = Ack{Code: "99", Desc: "internal error"}
)

// Reconciler folds gateway events from every delivery channel (webhook,
// return-redirect, poll) into a single monotonic transaction status, and
// emits exactly one internal notification per terminal transition.
type Reconciler interface {
	Reconcile(ctx context.Context, method string, payload map[string]string, signature string) (Ack, error)
	Poll(ctx context.Context, orderRef string) (*Transaction, error)

	// ForceExpire drives a stuck transaction through the same failure
	// path a gateway EXPIRED event would take. Used by the sweeper.
	ForceExpire(ctx context.Context, txnID uuid.UUID, reason string) error

	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// SetLifecycle wires the booking lifecycle after construction; the
	// bookings package is built on top of payments, so the dependency
	// arrives late.
	SetLifecycle(lifecycle BookingLifecycle)
}

// ReconcilerConfig tunes the reconciler's fallback safety check.
type ReconcilerConfig struct {
	// FallbackDelay is how long after emission the direct-write safety
	// check confirms the downstream booking update landed. Zero disables
	// the scheduled check.
	FallbackDelay time.Duration
}

type reconciler struct {
	repo      Repository
	registry  *Registry
	publisher events.Publisher
	lifecycle BookingLifecycle
	config    ReconcilerConfig
	log       *logger.Logger
}

// NewReconciler creates the payment reconciliation service
func NewReconciler(repo Repository, registry *Registry, publisher events.Publisher, config ReconcilerConfig, log *logger.Logger) Reconciler {
	return &reconciler{
		repo:      repo,
		registry:  registry,
		publisher: publisher,
		config:    config,
		log:       log,
	}
}

func (r *reconciler) SetLifecycle(lifecycle BookingLifecycle) {
	r.lifecycle = lifecycle
}

// Reconcile applies one raw gateway payload. Safe to call any number of
// times with the same event, from any channel, in any order.
func (r *reconciler) Reconcile(ctx context.Context, method string, payload map[string]string, signature string) (Ack, error) {
	adapter, err := r.registry.Get(method)
	if err != nil {
		return AckInternalError, err
	}

	event, err := adapter.Normalize(payload)
	if err != nil {
		return AckInternalError, err
	}

	// Unknown order reference: acknowledge without error so the provider
	// does not retry-storm us over a transaction we never opened.
	txn, err := r.repo.GetByOrderRef(ctx, event.OrderRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			r.log.Warn("gateway event for unknown order ref",
				slog.String("method", method),
				slog.String("order_ref", event.OrderRef))
			return AckSuccess, nil
		}
		return AckInternalError, err
	}

	// Authenticity gate: a failed check never mutates state and is the
	// one outcome the provider is told to treat as rejected.
	if !adapter.Verify(payload, signature) {
		return AckBadSignature, fmt.Errorf("%w: %s event for order %s", apperrors.ErrInvalidSignature, method, event.OrderRef)
	}

	// Idempotency checkpoint: a terminal transaction is already
	// processed, so duplicates and stale reorderings ack and stop here.
	if txn.Status.IsTerminal() {
		return AckSuccess, nil
	}

	if event.Amount > 0 && event.Amount != txn.Amount {
		r.log.Warn("gateway event amount mismatch",
			slog.String("order_ref", event.OrderRef),
			slog.Int64("expected", txn.Amount),
			slog.Int64("reported", event.Amount))
	}

	target := event.TargetStatus()
	if target == StatusProcessing {
		if _, err := r.repo.UpdateStatusIf(ctx, txn.ID, []Status{StatusPending}, StatusProcessing, event.ExternalRef, ""); err != nil {
			return AckInternalError, err
		}
		return AckSuccess, nil
	}

	failureReason := ""
	if target == StatusFailed {
		failureReason = fmt.Sprintf("gateway reported %s", event.Status)
	}
	if err := r.applyTerminal(ctx, txn, target, event.ExternalRef, failureReason, event.Status == CanonicalExpired); err != nil {
		return AckInternalError, err
	}
	return AckSuccess, nil
}

func (r *reconciler) Poll(ctx context.Context, orderRef string) (*Transaction, error) {
	return r.repo.GetByOrderRef(ctx, orderRef)
}

func (r *reconciler) ForceExpire(ctx context.Context, txnID uuid.UUID, reason string) error {
	txn, err := r.repo.GetByID(ctx, txnID)
	if err != nil {
		return err
	}
	if txn.Status.IsTerminal() {
		return nil
	}
	return r.applyTerminal(ctx, txn, StatusFailed, "", reason, true)
}

func (r *reconciler) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return r.repo.GetByID(ctx, id)
}

// applyTerminal performs the guarded terminal transition and, only after the
// conditional write is confirmed committed, emits exactly one internal
// notification followed by the scheduled fallback safety check.
func (r *reconciler) applyTerminal(ctx context.Context, txn *Transaction, target Status, externalRef, failureReason string, expired bool) error {
	swapped, err := r.repo.UpdateStatusIf(ctx, txn.ID, []Status{StatusPending, StatusProcessing}, target, externalRef, failureReason)
	if err != nil {
		return err
	}
	if !swapped {
		// A concurrent delivery won the swap; that delivery emits.
		return nil
	}

	// Re-read to verify the terminal state stuck before telling anyone.
	committed, err := r.repo.GetByID(ctx, txn.ID)
	if err != nil {
		return err
	}
	if committed.Status != target {
		return fmt.Errorf("transaction %s settled at %s instead of %s", txn.ID, committed.Status, target)
	}

	r.emit(ctx, committed, expired)
	r.scheduleFallbackCheck(committed)

	r.log.Info("transaction reconciled",
		slog.String("transaction_id", committed.ID.String()),
		slog.String("order_ref", committed.OrderRef),
		slog.String("status", committed.Status.String()))
	return nil
}

func (r *reconciler) emit(ctx context.Context, txn *Transaction, expired bool) {
	eventType := events.PaymentSuccess
	if txn.Status == StatusFailed {
		eventType = events.PaymentFailed
		if expired {
			eventType = events.PaymentExpired
		}
	}

	paymentID := txn.ID
	evt := events.Event{
		Type:       eventType,
		PaymentID:  &paymentID,
		BookingID:  txn.BookingID,
		CustomerID: txn.CustomerID,
		Amount:     txn.Amount,
		Method:     txn.Method,
		Reason:     txn.FailureReason,
	}
	if err := r.publisher.Publish(ctx, evt); err != nil {
		// The fallback safety check below self-heals a lost emission.
		r.log.Error("payment event publish failed",
			slog.String("transaction_id", txn.ID.String()),
			slog.String("event_type", string(eventType)),
			slog.Any("error", err))
	}
}

// scheduleFallbackCheck re-drives the booking directly if the event-driven
// path silently failed. Belt-and-suspenders; the consumer is the primary
// path and both are idempotent.
func (r *reconciler) scheduleFallbackCheck(txn *Transaction) {
	if r.config.FallbackDelay <= 0 || r.lifecycle == nil || txn.BookingID == nil {
		return
	}
	id := txn.ID
	time.AfterFunc(r.config.FallbackDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.RunFallbackCheck(ctx, id)
	})
}

// RunFallbackCheck verifies the downstream booking state matches the
// terminal transaction and repairs it through the lifecycle if not.
func (r *reconciler) RunFallbackCheck(ctx context.Context, txnID uuid.UUID) {
	txn, err := r.repo.GetByID(ctx, txnID)
	if err != nil || txn.BookingID == nil || !txn.Status.IsTerminal() {
		return
	}

	confirmed, err := r.lifecycle.IsConfirmed(ctx, *txn.BookingID)
	if err != nil {
		r.log.Warn("fallback check could not read booking",
			slog.String("booking_id", txn.BookingID.String()),
			slog.Any("error", err))
		return
	}

	switch {
	case txn.Status == StatusSucceeded && !confirmed:
		r.log.Warn("event-driven confirmation missing, repairing directly",
			slog.String("booking_id", txn.BookingID.String()))
		if err := r.lifecycle.ConfirmFromPayment(ctx, *txn.BookingID); err != nil {
			r.log.Error("fallback confirmation failed",
				slog.String("booking_id", txn.BookingID.String()),
				slog.Any("error", err))
		}
	case txn.Status != StatusSucceeded && !confirmed:
		if err := r.lifecycle.CancelFromPayment(ctx, *txn.BookingID, txn.FailureReason); err != nil && !errors.Is(err, apperrors.ErrState) {
			r.log.Error("fallback cancellation failed",
				slog.String("booking_id", txn.BookingID.String()),
				slog.Any("error", err))
		}
	}
}

// RefundClient adapts the gateway registry to the wallet service's refund
// contract.
type RefundClient struct {
	registry *Registry
	log      *logger.Logger
}

// NewRefundClient creates a refund client over the adapter registry
func NewRefundClient(registry *Registry, log *logger.Logger) *RefundClient {
	return &RefundClient{registry: registry, log: log}
}

// Refund delegates to the provider adapter for the payment method.
func (c *RefundClient) Refund(ctx context.Context, method, externalRef string, amount int64) error {
	adapter, err := c.registry.Get(method)
	if err != nil {
		return err
	}
	return adapter.Refund(ctx, externalRef, amount)
}

// Payout initiates an external bank transfer for a customer withdrawal.
// The transfer rail is an external collaborator reached asynchronously by
// the finance operator; here it is recorded for pickup.
func (c *RefundClient) Payout(ctx context.Context, holderID uuid.UUID, amount int64) error {
	c.log.Info("payout initiated",
		slog.String("holder_id", holderID.String()),
		slog.Int64("amount", amount))
	return nil
}
