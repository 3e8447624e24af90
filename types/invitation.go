package types

import "time"

// InvitationStatus represents the status of a plan invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "PENDING"
	InvitationStatusAccepted InvitationStatus = "ACCEPTED"
	InvitationStatusDeclined InvitationStatus = "DECLINED"
)

// Invitation asks a user to join a travel plan as a tripmate. At most one
// record exists per (plan, invitee) pair; a declined record is superseded in
// place when the invitee is invited again.
type Invitation struct {
	ID          string           `json:"id"`
	PlannerID   string           `json:"plannerId"`
	InviterID   string           `json:"inviterId"`
	InviteeID   string           `json:"inviteeId"`
	Status      InvitationStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// InvitationDecision is the invitee's answer to a pending invitation.
type InvitationDecision string

const (
	InvitationDecisionAccept  InvitationDecision = "accept"
	InvitationDecisionDecline InvitationDecision = "decline"
)

func (d InvitationDecision) IsValid() bool {
	return d == InvitationDecisionAccept || d == InvitationDecisionDecline
}

// TargetStatus maps a decision to the invitation status it produces.
func (d InvitationDecision) TargetStatus() InvitationStatus {
	if d == InvitationDecisionAccept {
		return InvitationStatusAccepted
	}
	return InvitationStatusDeclined
}
