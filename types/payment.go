package types

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"    // Created, no charge attempted yet
	PaymentStatusProcessing PaymentStatus = "PROCESSING" // Handed to the gateway, awaiting webhook
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"  // Terminal
	PaymentStatusFailed     PaymentStatus = "FAILED"     // Terminal
)

// PaymentNote is one append-only audit entry on a payment. Reset operations
// record themselves here so the recovery history is never lost.
type PaymentNote struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Payment tracks one charge attempt for a booking through the external
// gateway. ProviderRef is the gateway's identifier for the intent.
type Payment struct {
	ID          string        `json:"id"`
	BookingID   string        `json:"bookingId"`
	UserID      string        `json:"userId"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	ProviderRef string        `json:"providerRef,omitempty"`
	RetryCount  int           `json:"retryCount"`
	Notes       []PaymentNote `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IsValidTransition checks if a payment status transition is allowed.
// PROCESSING back to PENDING is the single manual recovery transition, used
// to unstick payments whose gateway webhook was lost.
func (ps PaymentStatus) IsValidTransition(newStatus PaymentStatus) bool {
	transitions := map[PaymentStatus][]PaymentStatus{
		PaymentStatusPending: {
			PaymentStatusProcessing,
		},
		PaymentStatusProcessing: {
			PaymentStatusSucceeded,
			PaymentStatusFailed,
			PaymentStatusPending,
		},
		PaymentStatusSucceeded: {}, // Terminal state
		PaymentStatusFailed:    {}, // Terminal state
	}

	allowed, exists := transitions[ps]
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

func (ps PaymentStatus) String() string {
	return string(ps)
}

func (ps PaymentStatus) IsValid() bool {
	switch ps {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// PaymentIntentResult is returned to the client after a payment intent is
// created with the gateway.
type PaymentIntentResult struct {
	PaymentID       string `json:"paymentId"`
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

// PaymentEvent is a gateway webhook notification after local verification.
type PaymentEvent struct {
	ProviderRef string        `json:"providerRef"`
	Status      PaymentStatus `json:"status"`
	Reason      string        `json:"reason,omitempty"`
}
