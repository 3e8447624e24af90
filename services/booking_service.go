package services

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/internal/events"
	"github.com/wayfarer-app/wayfarer-backend/internal/payment"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/pkg/valueobjects"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// BookingService owns bookings and their payment state machine. Booking and
// Payment are separate aggregates mutated under their own transactions;
// the links between them are reference ids and eventually consistent.
type BookingService struct {
	bookings  store.BookingStore
	payments  store.PaymentStore
	gateway   payment.Gateway
	publisher types.EventPublisher
}

// NewBookingService creates a BookingService.
func NewBookingService(bookings store.BookingStore, payments store.PaymentStore, gateway payment.Gateway, publisher types.EventPublisher) *BookingService {
	return &BookingService{
		bookings:  bookings,
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
	}
}

// CreateBooking validates and persists a new hotel booking in PENDING state.
func (s *BookingService) CreateBooking(ctx context.Context, booking *types.Booking) (string, error) {
	if booking.UserID == "" {
		return "", apperrors.ValidationFailed("invalid booking", "user ID is required")
	}
	if booking.HotelRef == "" {
		return "", apperrors.ValidationFailed("invalid booking", "hotel reference is required")
	}
	if booking.Rooms <= 0 {
		return "", apperrors.ValidationFailed("invalid booking", "rooms must be positive")
	}
	if booking.CheckIn.IsZero() || booking.CheckOut.IsZero() || !booking.CheckOut.After(booking.CheckIn) {
		return "", apperrors.ValidationFailed("invalid booking", "check-out must be after check-in")
	}
	if booking.Pricing.Total <= 0 {
		return "", apperrors.ValidationFailed("invalid booking", "total price must be positive")
	}
	if !valueobjects.IsValidCurrency(valueobjects.Currency(booking.Pricing.Currency)) {
		return "", apperrors.ValidationFailed("invalid booking", "unsupported currency")
	}

	booking.Status = types.BookingStatusPending
	bookingID, err := s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		return "", apperrors.NewDatabaseError(err)
	}
	return bookingID, nil
}

// GetBooking fetches a booking, restricted to its owner.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID string) (*types.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.Forbidden("Access to booking denied", "booking belongs to another user")
	}
	return booking, nil
}

// CreatePaymentIntent creates a payment record for the booking and asks the
// gateway to prepare the charge. On success the payment is PROCESSING and
// the booking carries its id. A PENDING payment left by a recovery reset is
// reused rather than duplicated, so a booking has at most one active payment.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, bookingID, userID string) (*types.PaymentIntentResult, error) {
	booking, err := s.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status == types.BookingStatusCancelled {
		return nil, apperrors.NewConflictError("Booking is cancelled", "cannot pay for a cancelled booking")
	}

	pay, err := s.activePayment(ctx, booking)
	if err != nil {
		return nil, err
	}

	if pay == nil {
		pay = &types.Payment{
			BookingID: bookingID,
			UserID:    userID,
			Amount:    booking.Pricing.Total,
			Currency:  booking.Pricing.Currency,
			Status:    types.PaymentStatusPending,
		}
		paymentID, err := s.payments.CreatePayment(ctx, pay)
		if err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		pay.ID = paymentID

		// The booking's pointer is written after the payment exists; a
		// reader in between sees a payment without a back-reference, which
		// is the documented transient state.
		if err := s.bookings.SetBookingPayment(ctx, bookingID, paymentID); err != nil {
			return nil, err
		}
	}

	intent, err := s.gateway.CreateIntent(ctx, &payment.IntentRequest{
		Amount:      pay.Amount,
		Currency:    pay.Currency,
		ReferenceID: pay.ID,
	})
	if err != nil {
		logger.GetLogger().Errorw("Payment gateway rejected intent", "paymentId", pay.ID, "error", err)
		return nil, apperrors.Unavailable(err, "Payment gateway is unavailable")
	}

	if err := s.payments.SetProviderRef(ctx, pay.ID, intent.IntentID); err != nil {
		return nil, err
	}
	if err := s.payments.TransitionPayment(ctx, pay.ID, types.PaymentStatusPending, types.PaymentStatusProcessing, "intent created with gateway"); err != nil {
		return nil, err
	}

	return &types.PaymentIntentResult{
		PaymentID:       pay.ID,
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// activePayment returns the booking's reusable PENDING payment, nil when a
// fresh payment should be created, or an error when a payment is already in
// flight or finished.
func (s *BookingService) activePayment(ctx context.Context, booking *types.Booking) (*types.Payment, error) {
	if booking.PaymentID == nil {
		return nil, nil
	}
	pay, err := s.payments.GetPayment(ctx, *booking.PaymentID)
	if err != nil {
		return nil, err
	}
	switch pay.Status {
	case types.PaymentStatusPending:
		return pay, nil
	case types.PaymentStatusProcessing:
		return nil, apperrors.NewConflictError("Payment already in flight", "wait for the gateway or reset the stuck payment")
	case types.PaymentStatusSucceeded:
		return nil, apperrors.NewConflictError("Booking already paid", "payment has already succeeded")
	default: // FAILED: start over with a fresh payment record
		return nil, nil
	}
}

// ResetStuckPayment recovers a payment whose gateway webhook was lost.
// Callers gate this behind a staleness window; the state machine only
// requires the payment to be exactly PROCESSING.
func (s *BookingService) ResetStuckPayment(ctx context.Context, paymentID string) (*types.Payment, error) {
	pay, err := s.payments.ResetStuckPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	s.publishPaymentEvent(ctx, pay, "reset")
	return pay, nil
}

// HandleWebhook consumes a verified gateway notification and advances the
// payment state machine. A succeeded payment also confirms its booking, as a
// separate single-document transaction.
func (s *BookingService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifySignature(body, signature) {
		return apperrors.AuthenticationFailed("invalid webhook signature")
	}

	var event types.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperrors.ValidationFailed("invalid webhook payload", err.Error())
	}
	if !event.Status.IsValid() {
		return apperrors.ValidationFailed("invalid webhook payload", "unknown payment status")
	}

	pay, err := s.payments.GetPaymentByProviderRef(ctx, event.ProviderRef)
	if err != nil {
		return err
	}
	if pay.Status == event.Status {
		// Gateways redeliver webhooks; an already-applied status is an ack.
		return nil
	}

	note := "gateway webhook: " + string(event.Status)
	if event.Reason != "" {
		note += " (" + event.Reason + ")"
	}
	if err := s.payments.TransitionPayment(ctx, pay.ID, pay.Status, event.Status, note); err != nil {
		return err
	}
	pay.Status = event.Status
	s.publishPaymentEvent(ctx, pay, "webhook")

	if event.Status == types.PaymentStatusSucceeded {
		if err := s.bookings.UpdateBookingStatus(ctx, pay.BookingID, types.BookingStatusPending, types.BookingStatusConfirmed); err != nil {
			// The payment transition is already durable; the booking catches
			// up on retry or redelivery.
			logger.GetLogger().Errorw("Failed to confirm booking after payment success",
				"bookingId", pay.BookingID, "paymentId", pay.ID, "error", err)
			return err
		}
	}
	return nil
}

// CancelBooking cancels a booking from PENDING or CONFIRMED.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID string) error {
	booking, err := s.GetBooking(ctx, bookingID, userID)
	if err != nil {
		return err
	}
	if !booking.Status.IsValidTransition(types.BookingStatusCancelled) {
		return apperrors.InvalidStatusTransition(string(booking.Status), string(types.BookingStatusCancelled))
	}
	return s.bookings.UpdateBookingStatus(ctx, bookingID, booking.Status, types.BookingStatusCancelled)
}

func (s *BookingService) publishPaymentEvent(ctx context.Context, pay *types.Payment, source string) {
	if s.publisher == nil {
		return
	}
	payload := map[string]string{
		"paymentId": pay.ID,
		"bookingId": pay.BookingID,
		"status":    string(pay.Status),
		"source":    source,
		"at":        time.Now().UTC().Format(time.RFC3339),
	}
	if err := events.PublishPlanEvent(ctx, s.publisher, types.EventTypePaymentStatusUpdated, pay.BookingID, pay.UserID, payload); err != nil {
		logger.GetLogger().Warnw("Failed to publish payment event", "paymentId", pay.ID, "error", err)
	}
}
