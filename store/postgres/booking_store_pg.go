package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// Ensure pgBookingStore implements store.BookingStore.
var _ store.BookingStore = (*pgBookingStore)(nil)

type pgBookingStore struct {
	db DB
}

// NewPgBookingStore creates a new PostgreSQL booking store.
func NewPgBookingStore(db DB) store.BookingStore {
	return &pgBookingStore{db: db}
}

// CreateBooking inserts a new booking and returns its id.
func (s *pgBookingStore) CreateBooking(ctx context.Context, booking *types.Booking) (string, error) {
	guestInfo, err := json.Marshal(booking.GuestInfo)
	if err != nil {
		return "", fmt.Errorf("failed to encode guest info: %w", err)
	}
	pricing, err := json.Marshal(booking.Pricing)
	if err != nil {
		return "", fmt.Errorf("failed to encode pricing: %w", err)
	}

	var bookingID string
	err = s.db.QueryRow(ctx, `
        INSERT INTO bookings (
            planner_id, user_id, hotel_ref, rooms, check_in, check_out,
            guest_info, pricing, status
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id`,
		booking.PlannerID,
		booking.UserID,
		booking.HotelRef,
		booking.Rooms,
		booking.CheckIn,
		booking.CheckOut,
		guestInfo,
		pricing,
		string(booking.Status),
	).Scan(&bookingID)

	if err != nil {
		logger.GetLogger().Errorw("Failed to create booking", "error", err)
		return "", fmt.Errorf("failed to insert booking: %w", err)
	}
	return bookingID, nil
}

// GetBooking retrieves a booking by id.
func (s *pgBookingStore) GetBooking(ctx context.Context, id string) (*types.Booking, error) {
	var booking types.Booking
	var guestInfo, pricing []byte

	err := s.db.QueryRow(ctx, `
        SELECT id, planner_id, user_id, hotel_ref, rooms, check_in, check_out,
               guest_info, pricing, status, payment_id, created_at, updated_at
        FROM bookings
        WHERE id = $1`,
		id,
	).Scan(
		&booking.ID,
		&booking.PlannerID,
		&booking.UserID,
		&booking.HotelRef,
		&booking.Rooms,
		&booking.CheckIn,
		&booking.CheckOut,
		&guestInfo,
		&pricing,
		&booking.Status,
		&booking.PaymentID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("booking", id)
		}
		return nil, fmt.Errorf("failed to execute GetBooking query: %w", err)
	}

	if err := json.Unmarshal(guestInfo, &booking.GuestInfo); err != nil {
		return nil, fmt.Errorf("failed to decode guest info: %w", err)
	}
	if err := json.Unmarshal(pricing, &booking.Pricing); err != nil {
		return nil, fmt.Errorf("failed to decode pricing: %w", err)
	}
	return &booking, nil
}

// UpdateBookingStatus moves a booking between states, guarded on the current
// status so a raced transition applies once.
func (s *pgBookingStore) UpdateBookingStatus(ctx context.Context, id string, from, to types.BookingStatus) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET status = $3, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, getErr := s.GetBooking(ctx, id)
		if getErr != nil {
			return getErr
		}
		return apperrors.InvalidStatusTransition(string(current.Status), string(to))
	}
	return nil
}

// SetBookingPayment writes the payment reference onto the booking. This is
// the second half of the eventually consistent Booking ↔ Payment link.
func (s *pgBookingStore) SetBookingPayment(ctx context.Context, bookingID, paymentID string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE bookings
        SET payment_id = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`,
		bookingID, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to set booking payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("booking", bookingID)
	}
	return nil
}
