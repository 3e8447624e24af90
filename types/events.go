package types

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	CategoryPlan       = "PLAN"
	CategoryInvitation = "INVITATION"
	CategoryPayment    = "PAYMENT"
)

const (
	// Plan events
	EventTypePlanCreated       EventType = CategoryPlan + "_CREATED"
	EventTypePlanUpdated       EventType = CategoryPlan + "_UPDATED"
	EventTypePlanDeleted       EventType = CategoryPlan + "_DELETED"
	EventTypePlanStatusUpdated EventType = CategoryPlan + "_STATUS_UPDATED"

	// Invitation events
	EventTypeInvitationCreated  EventType = CategoryInvitation + "_CREATED"
	EventTypeInvitationAccepted EventType = CategoryInvitation + "_ACCEPTED"
	EventTypeInvitationDeclined EventType = CategoryInvitation + "_DECLINED"

	// Payment events
	EventTypePaymentStatusUpdated EventType = CategoryPayment + "_STATUS_UPDATED"
)

// BaseEvent carries the metadata common to every published event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	PlanID    string    `json:"planId"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
}

type Event struct {
	BaseEvent
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventPublisher delivers events to whoever is listening on a plan's channel
// (connected tripmates refreshing their view). Publishing is best-effort from
// the caller's perspective; a failed publish never rolls back a committed
// write.
type EventPublisher interface {
	Publish(ctx context.Context, planID string, event Event) error
}
