package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/services"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// InvitationHandler exposes the invitation ledger over HTTP.
type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// InviteRequest is the request body for inviting a user to a plan.
type InviteRequest struct {
	InviteeID    string `json:"inviteeId" binding:"required"`
	InviteeEmail string `json:"inviteeEmail,omitempty"`
	Message      string `json:"message,omitempty"`
}

// RespondRequest is the invitee's answer to an invitation.
type RespondRequest struct {
	Decision types.InvitationDecision `json:"decision" binding:"required"`
}

// InviteHandler handles POST /plans/:id/invitations.
func (h *InvitationHandler) InviteHandler(c *gin.Context) {
	planID := c.Param("id")
	userID := getUserIDFromContext(c)

	var req InviteRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	inv, err := h.invitationService.Invite(c.Request.Context(), planID, userID, req.InviteeID, req.InviteeEmail, req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.GetLogger().Infow("Created invitation",
		"invitationId", inv.ID, "planId", planID, "inviteeId", req.InviteeID)

	c.JSON(http.StatusCreated, inv)
}

// RespondHandler handles POST /invitations/:id/respond.
func (h *InvitationHandler) RespondHandler(c *gin.Context) {
	invitationID := c.Param("id")
	userID := getUserIDFromContext(c)

	var req RespondRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	inv, err := h.invitationService.Respond(c.Request.Context(), invitationID, userID, req.Decision)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// ListPendingHandler handles GET /invitations.
func (h *InvitationHandler) ListPendingHandler(c *gin.Context) {
	userID := getUserIDFromContext(c)

	invitations, err := h.invitationService.ListPending(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}
