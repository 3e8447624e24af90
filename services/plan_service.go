package services

import (
	"context"
	"time"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/internal/events"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/models/plan/patch"
	"github.com/wayfarer-app/wayfarer-backend/models/plan/validation"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// PlanService owns the TravelPlan aggregate: creation, reads with lazy
// lifecycle write-through, and the partial-update flow.
type PlanService struct {
	store     store.PlanStore
	publisher types.EventPublisher
	now       func() time.Time
}

// NewPlanService creates a PlanService. publisher may be nil; events are
// best-effort and never fail a committed write.
func NewPlanService(planStore store.PlanStore, publisher types.EventPublisher) *PlanService {
	return &PlanService{
		store:     planStore,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (s *PlanService) WithClock(now func() time.Time) *PlanService {
	s.now = now
	return s
}

// CreatePlan validates and persists a new plan. The initial status is
// derived from the start date at creation time, so a plan created with a
// start date in the past begins life ONGOING, not PLANNING.
func (s *PlanService) CreatePlan(ctx context.Context, plan *types.TravelPlan) (string, error) {
	if err := validation.ValidatePlan(plan); err != nil {
		return "", err
	}

	plan.Status = validation.InitialPlanStatus(plan.StartDate, plan.EndDate, s.now())

	planID, err := s.store.CreatePlan(ctx, plan)
	if err != nil {
		return "", apperrors.NewDatabaseError(err)
	}

	s.publish(ctx, types.EventTypePlanCreated, planID, plan.AuthorID, nil)
	return planID, nil
}

// GetPlan fetches a plan, enforcing visibility, and lazily writes through
// any date-derived status change so later reads see it directly.
func (s *PlanService) GetPlan(ctx context.Context, planID, requesterID string) (*types.TravelPlan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if !canViewPlan(plan, requesterID) {
		return nil, apperrors.Forbidden("Access to plan denied", "plan is not visible to this user")
	}

	derived := types.DerivePlanStatus(plan.Status, plan.StartDate, plan.EndDate, s.now())
	if derived != plan.Status {
		// Racing readers write the identical transition; the guard in the
		// store makes the loser a no-op.
		if err := s.store.UpdatePlanStatus(ctx, planID, plan.Status, derived); err != nil {
			logger.GetLogger().Warnw("Failed to write through derived plan status",
				"planId", planID, "from", plan.Status, "to", derived, "error", err)
		} else {
			s.publish(ctx, types.EventTypePlanStatusUpdated, planID, requesterID, map[string]string{
				"from": string(plan.Status),
				"to":   string(derived),
			})
		}
		plan.Status = derived
	}

	return plan, nil
}

// UpdatePlan applies a partial update: optional top-level fields plus an
// optional sparse itinerary patch. The whole call is one atomic batch; on
// any failure the stored document is unchanged. expectedVersion < 0 skips
// the optimistic version check.
func (s *PlanService) UpdatePlan(ctx context.Context, planID, requesterID string, update *types.PlanUpdate, itinerary *types.ItineraryPatch, expectedVersion int64) (*types.UpdatedFieldsAck, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !canEditPlan(plan, requesterID) {
		return nil, apperrors.Forbidden("Access to plan denied", "only the author and tripmates can edit a plan")
	}

	if update != nil {
		if err := validation.ValidatePlanUpdate(update, plan); err != nil {
			return nil, err
		}
	}

	var resolve func(current *types.TravelPlan) ([]types.FieldWrite, error)
	if itinerary != nil && !itinerary.IsEmpty() {
		resolve = func(current *types.TravelPlan) ([]types.FieldWrite, error) {
			return patch.Build(current.Itinerary, *itinerary)
		}
	}

	ack, err := s.store.ApplyUpdate(ctx, planID, update, expectedVersion, resolve)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, types.EventTypePlanUpdated, planID, requesterID, ack)
	return ack, nil
}

// ReplaceItinerary validates and stores a complete new itinerary document.
// Used on first save of a plan's itinerary; subsequent edits go through
// UpdatePlan's patch path.
func (s *PlanService) ReplaceItinerary(ctx context.Context, planID, requesterID string, sections []types.Section) (*types.UpdatedFieldsAck, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !canEditPlan(plan, requesterID) {
		return nil, apperrors.Forbidden("Access to plan denied", "only the author and tripmates can edit a plan")
	}
	if err := validation.ValidateItinerary(sections); err != nil {
		return nil, err
	}

	ack, err := s.store.ReplaceItinerary(ctx, planID, sections)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, types.EventTypePlanUpdated, planID, requesterID, ack)
	return ack, nil
}

// ListUserPlans returns the plans the user authored or joined, with statuses
// derived for display but not written through (the next GetPlan does that).
func (s *PlanService) ListUserPlans(ctx context.Context, userID string) ([]*types.TravelPlan, error) {
	plans, err := s.store.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	for _, plan := range plans {
		plan.Status = types.DerivePlanStatus(plan.Status, plan.StartDate, plan.EndDate, s.now())
	}
	return plans, nil
}

// ArchivePlan soft-deletes a plan. Only the author may archive.
func (s *PlanService) ArchivePlan(ctx context.Context, planID, requesterID string) error {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.AuthorID != requesterID {
		return apperrors.Forbidden("Access to plan denied", "only the author can archive a plan")
	}
	if err := s.store.SoftDeletePlan(ctx, planID); err != nil {
		return err
	}
	s.publish(ctx, types.EventTypePlanDeleted, planID, requesterID, nil)
	return nil
}

func (s *PlanService) publish(ctx context.Context, eventType types.EventType, planID, userID string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := events.PublishPlanEvent(ctx, s.publisher, eventType, planID, userID, payload); err != nil {
		logger.GetLogger().Warnw("Failed to publish event", "type", eventType, "planId", planID, "error", err)
	}
}

func canViewPlan(plan *types.TravelPlan, userID string) bool {
	if plan.Visibility == types.VisibilityPublic {
		return true
	}
	// FRIENDS visibility is resolved by the social graph service upstream;
	// at this layer it behaves like members-only.
	return canEditPlan(plan, userID)
}

func canEditPlan(plan *types.TravelPlan, userID string) bool {
	if plan.AuthorID == userID {
		return true
	}
	for _, tripmate := range plan.Tripmates {
		if tripmate == userID {
			return true
		}
	}
	return false
}
