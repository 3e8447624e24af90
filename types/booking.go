package types

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// GuestInfo is the contact block a hotel needs for a reservation.
type GuestInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// BookingPricing is the price breakdown at booking time, in minor currency
// units.
type BookingPricing struct {
	RoomTotal int64  `json:"roomTotal"`
	Taxes     int64  `json:"taxes"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
}

// Booking is a hotel reservation, optionally attached to a travel plan. It
// references at most one active payment; the pointer is written after the
// payment record exists, so a nil PaymentID on a fresh booking is a normal
// transient state.
type Booking struct {
	ID        string         `json:"id"`
	PlannerID *string        `json:"plannerId,omitempty"`
	UserID    string         `json:"userId"`
	HotelRef  string         `json:"hotelRef"`
	Rooms     int            `json:"rooms"`
	CheckIn   time.Time      `json:"checkIn"`
	CheckOut  time.Time      `json:"checkOut"`
	GuestInfo GuestInfo      `json:"guestInfo"`
	Pricing   BookingPricing `json:"pricing"`
	Status    BookingStatus  `json:"status"`
	PaymentID *string        `json:"paymentId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// IsValidTransition checks if a booking status transition is allowed.
func (bs BookingStatus) IsValidTransition(newStatus BookingStatus) bool {
	transitions := map[BookingStatus][]BookingStatus{
		BookingStatusPending: {
			BookingStatusConfirmed,
			BookingStatusCancelled,
		},
		BookingStatusConfirmed: {
			BookingStatusCancelled,
		},
		BookingStatusCancelled: {}, // Terminal state
	}

	allowed, exists := transitions[bs]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (bs BookingStatus) IsValid() bool {
	switch bs {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	default:
		return false
	}
}
