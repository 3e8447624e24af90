package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

const (
	testInvitationID = "3d8a2f40-6c1b-4d55-9e07-2b6f0c9e7a11"
	testInviteeID    = "user-2"
)

func invitationRowColumns() []string {
	return []string{
		"id", "planner_id", "inviter_id", "invitee_id", "status", "message",
		"responded_at", "created_at", "updated_at",
	}
}

func sampleInvitationRow(status types.InvitationStatus, respondedAt *time.Time) []interface{} {
	now := time.Now().UTC()
	return []interface{}{
		testInvitationID, testPlanID, testUserID, testInviteeID,
		types.InvitationStatus(status), "join my trip",
		respondedAt, now, now,
	}
}

func TestCreateInvitation(t *testing.T) {
	mock := setupMock(t)
	s := NewPgInvitationStore(mock)
	ctx := context.Background()

	inv := &types.Invitation{
		PlannerID: testPlanID,
		InviterID: testUserID,
		InviteeID: testInviteeID,
		Message:   "join my trip",
	}

	t.Run("inserts pending invitation", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO invitations").
			WithArgs(testPlanID, testUserID, testInviteeID,
				string(types.InvitationStatusPending), "join my trip",
				string(types.InvitationStatusDeclined)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testInvitationID))

		id, err := s.CreateInvitation(ctx, inv)
		require.NoError(t, err)
		assert.Equal(t, testInvitationID, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("live invitation already exists", func(t *testing.T) {
		// The conflict clause only rewrites DECLINED rows, so a pending or
		// accepted record makes the statement return no rows.
		mock.ExpectQuery("INSERT INTO invitations").
			WithArgs(testPlanID, testUserID, testInviteeID,
				string(types.InvitationStatusPending), "join my trip",
				string(types.InvitationStatusDeclined)).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.CreateInvitation(ctx, inv)
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.DuplicateInvitationError, appErr.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("declined invitation is superseded", func(t *testing.T) {
		// The same statement rewrites the declined row in place and
		// returns its id.
		mock.ExpectQuery("ON CONFLICT \\(planner_id, invitee_id\\) DO UPDATE").
			WithArgs(testPlanID, testUserID, testInviteeID,
				string(types.InvitationStatusPending), "join my trip",
				string(types.InvitationStatusDeclined)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testInvitationID))

		id, err := s.CreateInvitation(ctx, inv)
		require.NoError(t, err)
		assert.Equal(t, testInvitationID, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetInvitation(t *testing.T) {
	mock := setupMock(t)
	s := NewPgInvitationStore(mock)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.|\n)*FROM invitations").
			WithArgs(testInvitationID).
			WillReturnRows(pgxmock.NewRows(invitationRowColumns()).
				AddRow(sampleInvitationRow(types.InvitationStatusPending, nil)...))

		inv, err := s.GetInvitation(ctx, testInvitationID)
		require.NoError(t, err)
		assert.Equal(t, types.InvitationStatusPending, inv.Status)
		assert.Equal(t, testInviteeID, inv.InviteeID)
		assert.Nil(t, inv.RespondedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT(.|\n)*FROM invitations").
			WithArgs(testInvitationID).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.GetInvitation(ctx, testInvitationID)
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.NotFoundError, appErr.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListPendingForInvitee(t *testing.T) {
	mock := setupMock(t)
	s := NewPgInvitationStore(mock)
	ctx := context.Background()

	mock.ExpectQuery("WHERE invitee_id = \\$1 AND status = \\$2").
		WithArgs(testInviteeID, string(types.InvitationStatusPending)).
		WillReturnRows(pgxmock.NewRows(invitationRowColumns()).
			AddRow(sampleInvitationRow(types.InvitationStatusPending, nil)...))

	invitations, err := s.ListPendingForInvitee(ctx, testInviteeID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, testInvitationID, invitations[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRespondInvitation(t *testing.T) {
	mock := setupMock(t)
	s := NewPgInvitationStore(mock)
	ctx := context.Background()

	t.Run("accepts pending invitation", func(t *testing.T) {
		respondedAt := time.Now().UTC()
		mock.ExpectQuery("UPDATE invitations(.|\n)*WHERE id = \\$1 AND status = \\$3").
			WithArgs(testInvitationID, string(types.InvitationStatusAccepted),
				string(types.InvitationStatusPending)).
			WillReturnRows(pgxmock.NewRows(invitationRowColumns()).
				AddRow(sampleInvitationRow(types.InvitationStatusAccepted, &respondedAt)...))

		inv, err := s.RespondInvitation(ctx, testInvitationID, types.InvitationStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, types.InvitationStatusAccepted, inv.Status)
		assert.NotNil(t, inv.RespondedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate response is a no-op ack", func(t *testing.T) {
		respondedAt := time.Now().UTC()
		mock.ExpectQuery("UPDATE invitations").
			WithArgs(testInvitationID, string(types.InvitationStatusAccepted),
				string(types.InvitationStatusPending)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT(.|\n)*FROM invitations").
			WithArgs(testInvitationID).
			WillReturnRows(pgxmock.NewRows(invitationRowColumns()).
				AddRow(sampleInvitationRow(types.InvitationStatusAccepted, &respondedAt)...))

		inv, err := s.RespondInvitation(ctx, testInvitationID, types.InvitationStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, types.InvitationStatusAccepted, inv.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("flipping a recorded decision is rejected", func(t *testing.T) {
		respondedAt := time.Now().UTC()
		mock.ExpectQuery("UPDATE invitations").
			WithArgs(testInvitationID, string(types.InvitationStatusDeclined),
				string(types.InvitationStatusPending)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT(.|\n)*FROM invitations").
			WithArgs(testInvitationID).
			WillReturnRows(pgxmock.NewRows(invitationRowColumns()).
				AddRow(sampleInvitationRow(types.InvitationStatusAccepted, &respondedAt)...))

		_, err := s.RespondInvitation(ctx, testInvitationID, types.InvitationStatusDeclined)
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.InvalidStatusTransitionError, appErr.Type)
		assert.Contains(t, appErr.Detail, "ACCEPTED")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing invitation", func(t *testing.T) {
		mock.ExpectQuery("UPDATE invitations").
			WithArgs(testInvitationID, string(types.InvitationStatusAccepted),
				string(types.InvitationStatusPending)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT(.|\n)*FROM invitations").
			WithArgs(testInvitationID).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.RespondInvitation(ctx, testInvitationID, types.InvitationStatusAccepted)
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.NotFoundError, appErr.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
