package bookings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// HandlerRegistry is the subscription surface of the event consumer.
type HandlerRegistry interface {
	On(t events.Type, handler events.Handler)
}

// RegisterEventHandlers subscribes the lifecycle to the payment outcome
// topics. Verification-only payments carry no booking and are skipped.
func RegisterEventHandlers(registry HandlerRegistry, service Service, log *logger.Logger) {
	registry.On(events.PaymentSuccess, confirmHandler(service))
	registry.On(events.PaymentFailed, cancelHandler(service, ReasonPaymentFailed, log))
	registry.On(events.PaymentExpired, cancelHandler(service, ReasonPaymentExpired, log))
}

func confirmHandler(service Service) events.Handler {
	return func(ctx context.Context, evt *events.Event) error {
		if evt.BookingID == nil {
			return nil
		}
		return service.ConfirmFromPayment(ctx, *evt.BookingID)
	}
}

func cancelHandler(service Service, fallbackReason string, log *logger.Logger) events.Handler {
	return func(ctx context.Context, evt *events.Event) error {
		if evt.BookingID == nil {
			return nil
		}
		reason := fallbackReason
		if evt.Reason != "" {
			reason = evt.Reason
		}
		err := service.CancelFromPayment(ctx, *evt.BookingID, reason)
		if errors.Is(err, apperrors.ErrState) {
			// Already confirmed or completed; a late failure event
			// must not unwind it.
			log.Warn("payment failure event ignored for settled booking",
				slog.String("booking_id", evt.BookingID.String()),
				slog.Any("error", err))
			return nil
		}
		return err
	}
}
