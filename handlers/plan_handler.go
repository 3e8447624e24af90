package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/middleware"
	"github.com/wayfarer-app/wayfarer-backend/services"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// PlanHandler exposes travel plan operations over HTTP.
type PlanHandler struct {
	planService *services.PlanService
}

func NewPlanHandler(planService *services.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlanRequest is the request body for creating a plan.
type CreatePlanRequest struct {
	Title       string               `json:"title" binding:"required"`
	Destination types.Destination    `json:"destination" binding:"required"`
	StartDate   time.Time            `json:"startDate" binding:"required"`
	EndDate     time.Time            `json:"endDate" binding:"required"`
	Visibility  types.PlanVisibility `json:"visibility,omitempty"`
	Lodging     []types.LodgingEntry `json:"lodging,omitempty"`
}

// UpdatePlanRequest is the request body for a partial plan update. All fields
// are optional; the itinerary block is a sparse patch addressed by stable
// section and item indexes.
type UpdatePlanRequest struct {
	Title           *string               `json:"title,omitempty"`
	Destination     *types.Destination    `json:"destination,omitempty"`
	StartDate       *time.Time            `json:"startDate,omitempty"`
	EndDate         *time.Time            `json:"endDate,omitempty"`
	Visibility      *types.PlanVisibility `json:"visibility,omitempty"`
	Status          *types.PlanStatus     `json:"status,omitempty"`
	Lodging         []types.LodgingEntry  `json:"lodging,omitempty"`
	Itinerary       *types.ItineraryPatch `json:"itinerary,omitempty"`
	ExpectedVersion *int64                `json:"expectedVersion,omitempty"`
}

// ReplaceItineraryRequest sets the full itinerary on a plan that has none.
type ReplaceItineraryRequest struct {
	Sections []types.Section `json:"sections" binding:"required"`
}

// CreatePlanHandler handles POST /plans.
func (h *PlanHandler) CreatePlanHandler(c *gin.Context) {
	log := logger.GetLogger()

	var req CreatePlanRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	userID := getUserIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No authenticated user"})
		return
	}

	plan := types.TravelPlan{
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Visibility:  req.Visibility,
		Lodging:     req.Lodging,
		AuthorID:    userID,
	}
	if plan.Visibility == "" {
		plan.Visibility = types.VisibilityPrivate
	}

	planID, err := h.planService.CreatePlan(c.Request.Context(), &plan)
	if err != nil {
		_ = c.Error(err)
		return
	}
	log.Infow("Created plan", "planId", planID, "authorId", userID)

	plan.ID = planID
	c.JSON(http.StatusCreated, plan)
}

// GetPlanHandler handles GET /plans/:id.
func (h *PlanHandler) GetPlanHandler(c *gin.Context) {
	planID := c.Param("id")
	userID := getUserIDFromContext(c)

	plan, err := h.planService.GetPlan(c.Request.Context(), planID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ListPlansHandler handles GET /plans.
func (h *PlanHandler) ListPlansHandler(c *gin.Context) {
	userID := getUserIDFromContext(c)

	plans, err := h.planService.ListUserPlans(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// UpdatePlanHandler handles PATCH /plans/:id. The response acknowledges
// exactly which fields and itinerary paths were written, plus the plan
// version after the write.
func (h *PlanHandler) UpdatePlanHandler(c *gin.Context) {
	planID := c.Param("id")
	userID := getUserIDFromContext(c)

	var req UpdatePlanRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	update := &types.PlanUpdate{
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Visibility:  req.Visibility,
		Status:      req.Status,
		Lodging:     req.Lodging,
	}

	expectedVersion := int64(-1)
	if req.ExpectedVersion != nil {
		expectedVersion = *req.ExpectedVersion
	}

	ack, err := h.planService.UpdatePlan(c.Request.Context(), planID, userID, update, req.Itinerary, expectedVersion)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ack)
}

// ReplaceItineraryHandler handles PUT /plans/:id/itinerary. Only valid while
// the plan's itinerary is still empty.
func (h *PlanHandler) ReplaceItineraryHandler(c *gin.Context) {
	planID := c.Param("id")
	userID := getUserIDFromContext(c)

	var req ReplaceItineraryRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	ack, err := h.planService.ReplaceItinerary(c.Request.Context(), planID, userID, req.Sections)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ack)
}

// ArchivePlanHandler handles DELETE /plans/:id. The plan is soft-deleted.
func (h *PlanHandler) ArchivePlanHandler(c *gin.Context) {
	planID := c.Param("id")
	userID := getUserIDFromContext(c)

	if err := h.planService.ArchivePlan(c.Request.Context(), planID, userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// getUserIDFromContext extracts the authenticated user ID from the gin
// context. Returns empty string if not found.
func getUserIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// bindJSONOrError binds the JSON request body and records a validation error
// if binding fails. Returns true if binding succeeded.
func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}
