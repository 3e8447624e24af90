package services

import (
	"context"
	"fmt"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/internal/events"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// InvitationService manages the invitation ledger. Accepting an invitation is
// the only path by which a user becomes a tripmate on a plan.
type InvitationService struct {
	invitations store.InvitationStore
	plans       store.PlanStore
	email       types.EmailService
	publisher   types.EventPublisher
	frontendURL string
}

// NewInvitationService creates an InvitationService. Email and publisher may
// be nil; both are best-effort side channels.
func NewInvitationService(invitations store.InvitationStore, plans store.PlanStore, email types.EmailService, publisher types.EventPublisher, frontendURL string) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		plans:       plans,
		email:       email,
		publisher:   publisher,
		frontendURL: frontendURL,
	}
}

// Invite creates a pending invitation for inviteeID to join the plan. Only
// the plan author or an existing tripmate may invite. A declined invitation
// for the same pair is superseded in place; a pending or accepted one makes
// the call fail with DuplicateInvitation.
func (s *InvitationService) Invite(ctx context.Context, planID, inviterID, inviteeID, inviteeEmail, message string) (*types.Invitation, error) {
	if inviteeID == "" {
		return nil, apperrors.ValidationFailed("invalid invitation", "invitee ID is required")
	}
	if inviteeID == inviterID {
		return nil, apperrors.ValidationFailed("invalid invitation", "cannot invite yourself")
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !isPlanMember(plan, inviterID) {
		return nil, apperrors.Forbidden("Cannot invite to this plan", "only the author or a tripmate may invite")
	}
	if isPlanMember(plan, inviteeID) {
		return nil, apperrors.NewConflictError("User already on plan", "invitee is already a tripmate")
	}

	inv := &types.Invitation{
		PlannerID: planID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    types.InvitationStatusPending,
		Message:   message,
	}
	id, err := s.invitations.CreateInvitation(ctx, inv)
	if err != nil {
		return nil, err
	}
	inv.ID = id

	s.sendInvitationEmail(ctx, plan, inv, inviteeEmail)
	s.publishInvitationEvent(ctx, types.EventTypeInvitationCreated, inv)
	return inv, nil
}

// Respond records the invitee's accept or decline. Only the invitee may
// respond. Accepting also adds the invitee to the plan's tripmates. Repeating
// an identical response is an idempotent no-op; flipping a settled answer is
// an invalid transition.
func (s *InvitationService) Respond(ctx context.Context, invitationID, userID string, decision types.InvitationDecision) (*types.Invitation, error) {
	if !decision.IsValid() {
		return nil, apperrors.ValidationFailed("invalid response", "decision must be accept or decline")
	}

	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != userID {
		return nil, apperrors.Forbidden("Cannot respond to this invitation", "invitation addressed to another user")
	}

	inv, err = s.invitations.RespondInvitation(ctx, invitationID, decision.TargetStatus())
	if err != nil {
		return nil, err
	}

	if inv.Status == types.InvitationStatusAccepted {
		// AddTripmate is idempotent, so a redelivered accept converges.
		if err := s.plans.AddTripmate(ctx, inv.PlannerID, inv.InviteeID); err != nil {
			return nil, err
		}
		s.publishInvitationEvent(ctx, types.EventTypeInvitationAccepted, inv)
	} else {
		s.publishInvitationEvent(ctx, types.EventTypeInvitationDeclined, inv)
	}
	return inv, nil
}

// ListPending returns the caller's open invitations.
func (s *InvitationService) ListPending(ctx context.Context, userID string) ([]*types.Invitation, error) {
	return s.invitations.ListPendingForInvitee(ctx, userID)
}

func isPlanMember(plan *types.TravelPlan, userID string) bool {
	if plan.AuthorID == userID {
		return true
	}
	for _, m := range plan.Tripmates {
		if m == userID {
			return true
		}
	}
	return false
}

func (s *InvitationService) sendInvitationEmail(ctx context.Context, plan *types.TravelPlan, inv *types.Invitation, inviteeEmail string) {
	if s.email == nil || inviteeEmail == "" {
		return
	}
	data := types.EmailData{
		To:      inviteeEmail,
		Subject: fmt.Sprintf("You're invited to \"%s\"", plan.Title),
		TemplateData: map[string]interface{}{
			"InviteeEmail":    inviteeEmail,
			"PlanName":        plan.Title,
			"AcceptanceURL":   fmt.Sprintf("%s/invitations/%s", s.frontendURL, inv.ID),
			"PersonalMessage": inv.Message,
		},
	}
	if err := s.email.SendInvitationEmail(ctx, data); err != nil {
		logger.GetLogger().Warnw("Failed to send invitation email",
			"invitationId", inv.ID, "error", err)
	}
}

func (s *InvitationService) publishInvitationEvent(ctx context.Context, eventType types.EventType, inv *types.Invitation) {
	if s.publisher == nil {
		return
	}
	payload := map[string]string{
		"invitationId": inv.ID,
		"inviteeId":    inv.InviteeID,
		"status":       string(inv.Status),
	}
	if err := events.PublishPlanEvent(ctx, s.publisher, eventType, inv.PlannerID, inv.InviterID, payload); err != nil {
		logger.GetLogger().Warnw("Failed to publish invitation event",
			"invitationId", inv.ID, "error", err)
	}
}
