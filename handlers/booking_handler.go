package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/services"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// BookingHandler exposes booking and payment operations over HTTP.
type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest is the request body for creating a booking. Prices are
// in minor currency units.
type CreateBookingRequest struct {
	PlannerID *string              `json:"plannerId,omitempty"`
	HotelRef  string               `json:"hotelRef" binding:"required"`
	Rooms     int                  `json:"rooms" binding:"required"`
	CheckIn   time.Time            `json:"checkIn" binding:"required"`
	CheckOut  time.Time            `json:"checkOut" binding:"required"`
	GuestInfo types.GuestInfo      `json:"guestInfo" binding:"required"`
	Pricing   types.BookingPricing `json:"pricing" binding:"required"`
}

// CreateBookingHandler handles POST /bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req CreateBookingRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	userID := getUserIDFromContext(c)
	booking := types.Booking{
		PlannerID: req.PlannerID,
		UserID:    userID,
		HotelRef:  req.HotelRef,
		Rooms:     req.Rooms,
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
		GuestInfo: req.GuestInfo,
		Pricing:   req.Pricing,
	}

	bookingID, err := h.bookingService.CreateBooking(c.Request.Context(), &booking)
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.GetLogger().Infow("Created booking", "bookingId", bookingID, "userId", userID)

	booking.ID = bookingID
	c.JSON(http.StatusCreated, booking)
}

// GetBookingHandler handles GET /bookings/:id.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	bookingID := c.Param("id")
	userID := getUserIDFromContext(c)

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CreatePaymentIntentHandler handles POST /bookings/:id/payment-intent.
func (h *BookingHandler) CreatePaymentIntentHandler(c *gin.Context) {
	bookingID := c.Param("id")
	userID := getUserIDFromContext(c)

	result, err := h.bookingService.CreatePaymentIntent(c.Request.Context(), bookingID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CancelBookingHandler handles POST /bookings/:id/cancel.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	bookingID := c.Param("id")
	userID := getUserIDFromContext(c)

	if err := h.bookingService.CancelBooking(c.Request.Context(), bookingID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ResetStuckPaymentHandler handles POST /payments/:id/reset. It unsticks a
// payment whose gateway webhook never arrived.
func (h *BookingHandler) ResetStuckPaymentHandler(c *gin.Context) {
	paymentID := c.Param("id")

	pay, err := h.bookingService.ResetStuckPayment(c.Request.Context(), paymentID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, pay)
}

// PaymentWebhookHandler handles POST /webhooks/payment. It is unauthenticated;
// the payload is trusted only after its HMAC signature verifies.
func (h *BookingHandler) PaymentWebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid webhook", "could not read request body"))
		return
	}
	signature := c.GetHeader("X-Webhook-Signature")

	if err := h.bookingService.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
