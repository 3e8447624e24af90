package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

const (
	testPlanID  = "7b0e4f1a-8f2c-4df0-b1a4-1f9f6f3f9a01"
	testUserID  = "user-1"
	testFriend  = "user-2"
	testOutside = "user-9"
)

func storedPlan(status types.PlanStatus, visibility types.PlanVisibility) *types.TravelPlan {
	return &types.TravelPlan{
		ID:    testPlanID,
		Title: "Lisbon long weekend",
		Destination: types.Destination{
			Name:      "Lisbon",
			Latitude:  38.7223,
			Longitude: -9.1393,
		},
		StartDate:  time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		Visibility: visibility,
		Status:     status,
		AuthorID:   testUserID,
		Tripmates:  []string{testFriend},
		Version:    3,
	}
}

func assertErrType(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *AppError, got %T", err)
	assert.Equal(t, want, appErr.Type)
}

func TestPlanServiceCreatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the initial status from the dates", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil).
			WithClock(func() time.Time { return time.Date(2026, 10, 3, 12, 0, 0, 0, time.UTC) })

		plan := storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate)
		plan.ID = ""
		mockStore.On("CreatePlan", ctx, plan).Return(testPlanID, nil)

		id, err := service.CreatePlan(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, testPlanID, id)
		// Creation falls inside the travel window, so the plan starts ONGOING.
		assert.Equal(t, types.PlanStatusOngoing, plan.Status)
		mockStore.AssertExpectations(t)
	})

	t.Run("rejects an invalid plan before touching the store", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		plan := storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate)
		plan.Title = ""

		_, err := service.CreatePlan(ctx, plan)
		assertErrType(t, err, apperrors.ValidationError)
		mockStore.AssertNotCalled(t, "CreatePlan", mock.Anything, mock.Anything)
	})
}

func TestPlanServiceGetPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("writes through a date-derived status change", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil).
			WithClock(func() time.Time { return time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC) })

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusConfirmed, types.VisibilityPrivate), nil)
		mockStore.On("UpdatePlanStatus", ctx, testPlanID,
			types.PlanStatusConfirmed, types.PlanStatusOngoing).Return(nil)

		plan, err := service.GetPlan(ctx, testPlanID, testUserID)
		require.NoError(t, err)
		assert.Equal(t, types.PlanStatusOngoing, plan.Status)
		mockStore.AssertExpectations(t)
	})

	t.Run("losing the write-through race still returns the derived status", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil).
			WithClock(func() time.Time { return time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC) })

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusOngoing, types.VisibilityPrivate), nil)
		mockStore.On("UpdatePlanStatus", ctx, testPlanID,
			types.PlanStatusOngoing, types.PlanStatusCompleted).
			Return(apperrors.NewDatabaseError(assert.AnError))

		plan, err := service.GetPlan(ctx, testPlanID, testUserID)
		require.NoError(t, err)
		assert.Equal(t, types.PlanStatusCompleted, plan.Status)
		mockStore.AssertExpectations(t)
	})

	t.Run("no write when the status is already current", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil).
			WithClock(func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) })

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)

		plan, err := service.GetPlan(ctx, testPlanID, testUserID)
		require.NoError(t, err)
		assert.Equal(t, types.PlanStatusPlanning, plan.Status)
		mockStore.AssertNotCalled(t, "UpdatePlanStatus",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("private plan is hidden from outsiders", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)

		_, err := service.GetPlan(ctx, testPlanID, testOutside)
		assertErrType(t, err, apperrors.ForbiddenError)
	})

	t.Run("friends visibility behaves like members-only", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil).
			WithClock(func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) })

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityFriends), nil)

		_, err := service.GetPlan(ctx, testPlanID, testOutside)
		assertErrType(t, err, apperrors.ForbiddenError)

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityFriends), nil)
		_, err = service.GetPlan(ctx, testPlanID, testFriend)
		require.NoError(t, err)
	})

	t.Run("public plan is readable by anyone", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil).
			WithClock(func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) })

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPublic), nil)

		_, err := service.GetPlan(ctx, testPlanID, testOutside)
		require.NoError(t, err)
	})
}

func TestPlanServiceUpdatePlan(t *testing.T) {
	ctx := context.Background()

	title := "Lisbon, revised"
	update := &types.PlanUpdate{Title: &title}

	t.Run("tripmate can update", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		ack := &types.UpdatedFieldsAck{
			PlanID:        testPlanID,
			UpdatedFields: []string{"title"},
			Version:       4,
		}
		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)
		mockStore.On("ApplyUpdate", ctx, testPlanID, update, int64(-1), mock.Anything).
			Return(ack, nil)

		got, err := service.UpdatePlan(ctx, testPlanID, testFriend, update, nil, -1)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Version)
		mockStore.AssertExpectations(t)
	})

	t.Run("outsider cannot update", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPublic), nil)

		_, err := service.UpdatePlan(ctx, testPlanID, testOutside, update, nil, -1)
		assertErrType(t, err, apperrors.ForbiddenError)
		mockStore.AssertNotCalled(t, "ApplyUpdate",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("illegal lifecycle change is rejected before the store write", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		completed := types.PlanStatusCompleted
		bad := &types.PlanUpdate{Status: &completed}
		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)

		_, err := service.UpdatePlan(ctx, testPlanID, testUserID, bad, nil, -1)
		assertErrType(t, err, apperrors.InvalidStatusTransitionError)
		mockStore.AssertNotCalled(t, "ApplyUpdate",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("itinerary patch flows through as a resolver", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		sectionName := "Day one"
		itinerary := &types.ItineraryPatch{
			Sections: []types.SectionPatch{{Index: 0, Name: &sectionName}},
		}
		ack := &types.UpdatedFieldsAck{PlanID: testPlanID, Version: 4}
		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)
		mockStore.On("ApplyUpdate", ctx, testPlanID, (*types.PlanUpdate)(nil), int64(7),
			mock.MatchedBy(func(resolve func(*types.TravelPlan) ([]types.FieldWrite, error)) bool {
				return resolve != nil
			})).Return(ack, nil)

		_, err := service.UpdatePlan(ctx, testPlanID, testUserID, nil, itinerary, 7)
		require.NoError(t, err)
		mockStore.AssertExpectations(t)
	})
}

func TestPlanServiceArchivePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("author archives", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)
		mockStore.On("SoftDeletePlan", ctx, testPlanID).Return(nil)

		require.NoError(t, service.ArchivePlan(ctx, testPlanID, testUserID))
		mockStore.AssertExpectations(t)
	})

	t.Run("tripmate cannot archive", func(t *testing.T) {
		mockStore := new(MockPlanStore)
		service := NewPlanService(mockStore, nil)

		mockStore.On("GetPlan", ctx, testPlanID).
			Return(storedPlan(types.PlanStatusPlanning, types.VisibilityPrivate), nil)

		err := service.ArchivePlan(ctx, testPlanID, testFriend)
		assertErrType(t, err, apperrors.ForbiddenError)
		mockStore.AssertNotCalled(t, "SoftDeletePlan", mock.Anything, mock.Anything)
	})
}

func TestPlanServiceListUserPlans(t *testing.T) {
	ctx := context.Background()
	mockStore := new(MockPlanStore)
	service := NewPlanService(mockStore, nil).
		WithClock(func() time.Time { return time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC) })

	mockStore.On("ListUserPlans", ctx, testUserID).
		Return([]*types.TravelPlan{storedPlan(types.PlanStatusOngoing, types.VisibilityPrivate)}, nil)

	plans, err := service.ListUserPlans(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	// Derived for display only; no write-through on the list path.
	assert.Equal(t, types.PlanStatusCompleted, plans[0].Status)
	mockStore.AssertNotCalled(t, "UpdatePlanStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
