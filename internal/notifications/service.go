package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/bookings"
	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/fields"
	"github.com/MNhat168/sport-zone-sub003/internal/users"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// BookingSource looks up the booking an event refers to.
type BookingSource interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*bookings.Booking, error)
}

// AccountDirectory resolves the recipient of a notification.
type AccountDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// FieldDirectory resolves the field name for the email body.
type FieldDirectory interface {
	GetField(ctx context.Context, id uuid.UUID) (*fields.Field, error)
}

// Service sends booking emails off the internal event stream. Strictly
// best-effort: an email failure is logged and never fails the booking or
// payment outcome.
type Service struct {
	email    EmailService
	bookings BookingSource
	accounts AccountDirectory
	fields   FieldDirectory
	log      *logger.Logger
}

// NewService creates the notification service
func NewService(email EmailService, bookingSource BookingSource, accounts AccountDirectory, fieldDir FieldDirectory, log *logger.Logger) *Service {
	return &Service{
		email:    email,
		bookings: bookingSource,
		accounts: accounts,
		fields:   fieldDir,
		log:      log,
	}
}

// RegisterEventHandlers subscribes the mailer to booking outcome topics.
func (s *Service) RegisterEventHandlers(consumer *events.Consumer) {
	consumer.On(events.BookingConfirmed, func(ctx context.Context, evt *events.Event) error {
		s.notify(ctx, evt, true)
		return nil
	})
	consumer.On(events.BookingCancelled, func(ctx context.Context, evt *events.Event) error {
		s.notify(ctx, evt, false)
		return nil
	})
}

func (s *Service) notify(ctx context.Context, evt *events.Event, confirmed bool) {
	if evt.BookingID == nil {
		return
	}

	email, err := s.buildEmail(ctx, *evt.BookingID, evt)
	if err != nil {
		s.log.Warn("booking email skipped",
			slog.String("booking_id", evt.BookingID.String()),
			slog.Any("error", err))
		return
	}

	if confirmed {
		err = s.email.SendBookingConfirmation(ctx, email)
	} else {
		err = s.email.SendBookingCancellation(ctx, email)
	}
	if err != nil {
		s.log.Warn("booking email failed",
			slog.String("booking_id", evt.BookingID.String()),
			slog.Any("error", err))
	}
}

func (s *Service) buildEmail(ctx context.Context, bookingID uuid.UUID, evt *events.Event) (BookingEmail, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return BookingEmail{}, err
	}
	user, err := s.accounts.GetUser(ctx, booking.CustomerID)
	if err != nil {
		return BookingEmail{}, err
	}

	fieldName := "your field"
	if field, err := s.fields.GetField(ctx, booking.FieldID); err == nil {
		fieldName = field.Name
	}

	methodLabel := evt.Method
	if methodLabel == "" {
		methodLabel = "online payment"
	}

	return BookingEmail{
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		BookingID:      booking.ID.String(),
		FieldName:      fieldName,
		Date:           booking.Date,
		Interval:       booking.Interval().String(),
		Amount:         booking.TotalPrice,
		MethodLabel:    methodLabel,
		Reason:         evt.Reason,
	}, nil
}
