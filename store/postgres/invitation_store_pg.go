package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// Ensure pgInvitationStore implements store.InvitationStore.
var _ store.InvitationStore = (*pgInvitationStore)(nil)

type pgInvitationStore struct {
	db DB
}

// NewPgInvitationStore creates a new PostgreSQL invitation store.
func NewPgInvitationStore(db DB) store.InvitationStore {
	return &pgInvitationStore{db: db}
}

const invitationColumns = `
	id, planner_id, inviter_id, invitee_id, status, message,
	responded_at, created_at, updated_at`

// CreateInvitation inserts a pending invitation. The (planner_id, invitee_id)
// pair is unique; a declined record is superseded in place, while a live
// pending or accepted record fails with DuplicateInvitation.
func (s *pgInvitationStore) CreateInvitation(ctx context.Context, inv *types.Invitation) (string, error) {
	var invitationID string
	err := s.db.QueryRow(ctx, `
        INSERT INTO invitations (planner_id, inviter_id, invitee_id, status, message)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (planner_id, invitee_id) DO UPDATE
        SET inviter_id = EXCLUDED.inviter_id,
            status = EXCLUDED.status,
            message = EXCLUDED.message,
            responded_at = NULL,
            updated_at = CURRENT_TIMESTAMP
        WHERE invitations.status = $6
        RETURNING id`,
		inv.PlannerID,
		inv.InviterID,
		inv.InviteeID,
		string(types.InvitationStatusPending),
		inv.Message,
		string(types.InvitationStatusDeclined),
	).Scan(&invitationID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflict target exists and is not DECLINED: a live
			// invitation already covers this pair.
			return "", apperrors.DuplicateInvitation(inv.PlannerID, inv.InviteeID)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", apperrors.DuplicateInvitation(inv.PlannerID, inv.InviteeID)
		}
		logger.GetLogger().Errorw("Failed to create invitation",
			"plannerId", inv.PlannerID, "inviteeId", inv.InviteeID, "error", err)
		return "", fmt.Errorf("failed to insert invitation: %w", err)
	}

	return invitationID, nil
}

// GetInvitation retrieves an invitation by id.
func (s *pgInvitationStore) GetInvitation(ctx context.Context, id string) (*types.Invitation, error) {
	row := s.db.QueryRow(ctx, `
        SELECT`+invitationColumns+`
        FROM invitations
        WHERE id = $1`,
		id,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("invitation", id)
		}
		return nil, fmt.Errorf("failed to execute GetInvitation query: %w", err)
	}
	return inv, nil
}

// ListPendingForInvitee retrieves all pending invitations addressed to a user.
func (s *pgInvitationStore) ListPendingForInvitee(ctx context.Context, inviteeID string) ([]*types.Invitation, error) {
	rows, err := s.db.Query(ctx, `
        SELECT`+invitationColumns+`
        FROM invitations
        WHERE invitee_id = $1 AND status = $2
        ORDER BY created_at DESC`,
		inviteeID, string(types.InvitationStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListPendingForInvitee query: %w", err)
	}
	defer rows.Close()

	var invitations []*types.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation row: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading invitation rows: %w", err)
	}
	return invitations, nil
}

// RespondInvitation records the invitee's decision. Legal only from PENDING;
// the guard runs in SQL so duplicate responses cannot both apply.
func (s *pgInvitationStore) RespondInvitation(ctx context.Context, id string, status types.InvitationStatus) (*types.Invitation, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE invitations
        SET status = $2, responded_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND status = $3
        RETURNING`+invitationColumns,
		id, string(status), string(types.InvitationStatusPending),
	)

	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := s.GetInvitation(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == status {
				// Duplicate client retry of the same decision: a no-op ack.
				return current, nil
			}
			return nil, apperrors.InvalidStatusTransition(string(current.Status), string(status))
		}
		return nil, fmt.Errorf("failed to respond to invitation: %w", err)
	}
	return inv, nil
}

func scanInvitation(row pgx.Row) (*types.Invitation, error) {
	var inv types.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.PlannerID,
		&inv.InviterID,
		&inv.InviteeID,
		&inv.Status,
		&inv.Message,
		&inv.RespondedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
