// Package store defines the persistence interfaces for each aggregate. One
// aggregate is one unit of transactional mutation; cross-aggregate links are
// reference ids, never multi-document transactions.
package store

import (
	"context"

	"github.com/wayfarer-app/wayfarer-backend/types"
)

// PlanStore persists TravelPlan aggregates. ApplyUpdate is the write side of
// the path-addressable update engine: the whole batch lands atomically or
// not at all.
type PlanStore interface {
	CreatePlan(ctx context.Context, plan *types.TravelPlan) (string, error)
	GetPlan(ctx context.Context, id string) (*types.TravelPlan, error)
	ListUserPlans(ctx context.Context, userID string) ([]*types.TravelPlan, error)

	// ApplyUpdate applies top-level field changes and itinerary leaf writes
	// in one transaction. expectedVersion < 0 skips the optimistic check;
	// otherwise a mismatch fails the batch with VersionConflict. The
	// itinerary write batch is built inside the transaction by resolve, so
	// stale-index detection runs against the row actually locked.
	ApplyUpdate(ctx context.Context, id string, update *types.PlanUpdate, expectedVersion int64,
		resolve func(current *types.TravelPlan) ([]types.FieldWrite, error)) (*types.UpdatedFieldsAck, error)

	// ReplaceItinerary stores a complete itinerary document, only when the
	// plan has none yet. First-save path; edits go through ApplyUpdate.
	ReplaceItinerary(ctx context.Context, id string, sections []types.Section) (*types.UpdatedFieldsAck, error)

	// UpdatePlanStatus writes through a derived status change. Conditional on
	// the current status so racing readers produce one effective write.
	UpdatePlanStatus(ctx context.Context, id string, from, to types.PlanStatus) error

	// AddTripmate appends a user to the plan's tripmates exactly once.
	AddTripmate(ctx context.Context, planID, userID string) error

	SoftDeletePlan(ctx context.Context, id string) error
}

// BookingStore persists hotel bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *types.Booking) (string, error)
	GetBooking(ctx context.Context, id string) (*types.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, from, to types.BookingStatus) error
	SetBookingPayment(ctx context.Context, bookingID, paymentID string) error
}

// PaymentStore persists payments and their state machine.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *types.Payment) (string, error)
	GetPayment(ctx context.Context, id string) (*types.Payment, error)
	GetPaymentByProviderRef(ctx context.Context, providerRef string) (*types.Payment, error)
	SetProviderRef(ctx context.Context, id, providerRef string) error

	// TransitionPayment moves a payment between states. The transition is
	// guarded in SQL on the current status, so concurrent webhooks cannot
	// double-apply.
	TransitionPayment(ctx context.Context, id string, from, to types.PaymentStatus, note string) error

	// ResetStuckPayment is the PROCESSING → PENDING recovery path: bumps
	// retryCount and appends an audit note. Fails with
	// InvalidStatusTransition unless the payment is exactly PROCESSING.
	ResetStuckPayment(ctx context.Context, id string) (*types.Payment, error)
}

// InvitationStore persists the invitation ledger with its at-most-one-per-
// (plan, invitee) uniqueness.
type InvitationStore interface {
	// CreateInvitation inserts a pending invitation, superseding a declined
	// record for the same pair in place. A live pending or accepted record
	// fails with DuplicateInvitation.
	CreateInvitation(ctx context.Context, inv *types.Invitation) (string, error)
	GetInvitation(ctx context.Context, id string) (*types.Invitation, error)
	ListPendingForInvitee(ctx context.Context, inviteeID string) ([]*types.Invitation, error)

	// RespondInvitation sets the status and respondedAt, legal only from
	// PENDING. Returns the post-response record.
	RespondInvitation(ctx context.Context, id string, status types.InvitationStatus) (*types.Invitation, error)
}
