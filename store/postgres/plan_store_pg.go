package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// Ensure pgPlanStore implements store.PlanStore.
var _ store.PlanStore = (*pgPlanStore)(nil)

type pgPlanStore struct {
	db DB
}

// NewPgPlanStore creates a new PostgreSQL plan store.
func NewPgPlanStore(db DB) store.PlanStore {
	return &pgPlanStore{db: db}
}

const planColumns = `
	id, title, destination, start_date, end_date, visibility, status,
	author_id, tripmates, lodging, itinerary, version,
	created_at, updated_at, deleted_at`

// CreatePlan inserts a new plan and returns its id.
func (s *pgPlanStore) CreatePlan(ctx context.Context, plan *types.TravelPlan) (string, error) {
	log := logger.GetLogger()

	destination, err := json.Marshal(plan.Destination)
	if err != nil {
		return "", fmt.Errorf("failed to encode destination: %w", err)
	}
	lodging, err := json.Marshal(plan.Lodging)
	if err != nil {
		return "", fmt.Errorf("failed to encode lodging: %w", err)
	}
	itinerary, err := json.Marshal(plan.Itinerary)
	if err != nil {
		return "", fmt.Errorf("failed to encode itinerary: %w", err)
	}
	if plan.Itinerary == nil {
		itinerary = []byte("[]")
	}

	tripmates := plan.Tripmates
	if tripmates == nil {
		tripmates = []string{}
	}

	var planID string
	err = s.db.QueryRow(ctx, `
        INSERT INTO travel_plans (
            title, destination, start_date, end_date, visibility, status,
            author_id, tripmates, lodging, itinerary
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`,
		plan.Title,
		destination,
		plan.StartDate,
		plan.EndDate,
		string(plan.Visibility),
		string(plan.Status),
		plan.AuthorID,
		tripmates,
		lodging,
		itinerary,
	).Scan(&planID)

	if err != nil {
		log.Errorw("Failed to create plan", "error", err)
		return "", fmt.Errorf("failed to insert plan: %w", err)
	}

	log.Infow("Created plan", "planId", planID, "authorId", plan.AuthorID)
	return planID, nil
}

// GetPlan retrieves a single non-archived plan by id.
func (s *pgPlanStore) GetPlan(ctx context.Context, id string) (*types.TravelPlan, error) {
	query := `
        SELECT` + planColumns + `
        FROM travel_plans
        WHERE id = $1 AND deleted_at IS NULL`

	row := s.db.QueryRow(ctx, query, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.PlanNotFound(id)
		}
		logger.GetLogger().Errorw("Failed to get plan", "planId", id, "error", err)
		return nil, fmt.Errorf("failed to execute GetPlan query: %w", err)
	}
	return plan, nil
}

// ListUserPlans retrieves all non-archived plans the user authored or joined
// as a tripmate, ordered by start date descending.
func (s *pgPlanStore) ListUserPlans(ctx context.Context, userID string) ([]*types.TravelPlan, error) {
	query := `
        SELECT` + planColumns + `
        FROM travel_plans
        WHERE (author_id = $1 OR $1 = ANY(tripmates)) AND deleted_at IS NULL
        ORDER BY start_date DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		logger.GetLogger().Errorw("Failed to query user plans", "userId", userID, "error", err)
		return nil, fmt.Errorf("failed to execute ListUserPlans query: %w", err)
	}
	defer rows.Close()

	var plans []*types.TravelPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading plan rows: %w", err)
	}
	return plans, nil
}

// ApplyUpdate applies one partial update as a single atomic batch. The plan
// row is locked, the itinerary write set is resolved against the locked
// document, and every leaf write plus the top-level changes land in the same
// transaction. Any failure leaves the document in its pre-call state.
func (s *pgPlanStore) ApplyUpdate(ctx context.Context, id string, update *types.PlanUpdate, expectedVersion int64,
	resolve func(current *types.TravelPlan) ([]types.FieldWrite, error)) (*types.UpdatedFieldsAck, error) {
	log := logger.GetLogger()
	var ack *types.UpdatedFieldsAck

	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		query := `
        SELECT` + planColumns + `
        FROM travel_plans
        WHERE id = $1 AND deleted_at IS NULL
        FOR UPDATE`

		current, err := scanPlan(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.PlanNotFound(id)
			}
			return fmt.Errorf("failed to lock plan row: %w", err)
		}

		if expectedVersion >= 0 && current.Version != expectedVersion {
			return apperrors.VersionConflict(expectedVersion, current.Version)
		}

		var writes []types.FieldWrite
		if resolve != nil {
			writes, err = resolve(current)
			if err != nil {
				return err
			}
		}

		updatedFields, err := applyTopLevel(ctx, tx, id, update)
		if err != nil {
			return err
		}

		labels := make([]string, 0, len(writes))
		for _, w := range writes {
			_, err := tx.Exec(ctx, `
                UPDATE travel_plans
                SET itinerary = jsonb_set(itinerary, $2::text[], $3::jsonb, false)
                WHERE id = $1`,
				id, w.Path, w.Value,
			)
			if err != nil {
				return fmt.Errorf("failed to apply itinerary write %s: %w", w.Label, err)
			}
			labels = append(labels, w.Label)
		}

		// One version bump per batch regardless of how many leaves changed.
		var newVersion int64
		err = tx.QueryRow(ctx, `
            UPDATE travel_plans
            SET version = version + 1, updated_at = CURRENT_TIMESTAMP
            WHERE id = $1
            RETURNING version`,
			id,
		).Scan(&newVersion)
		if err != nil {
			return fmt.Errorf("failed to bump plan version: %w", err)
		}

		ack = &types.UpdatedFieldsAck{
			PlanID:        id,
			UpdatedFields: updatedFields,
			UpdatedPaths:  labels,
			Version:       newVersion,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Infow("Applied plan update", "planId", id,
		"topLevelFields", len(ack.UpdatedFields), "itineraryWrites", len(ack.UpdatedPaths))
	return ack, nil
}

// applyTopLevel builds and executes the dynamic SET clause for the optional
// top-level fields of a partial update.
func applyTopLevel(ctx context.Context, tx pgx.Tx, id string, update *types.PlanUpdate) ([]string, error) {
	if update == nil {
		return nil, nil
	}

	var setFields []string
	var updated []string
	var args []interface{}
	argPosition := 1

	add := func(column, field string, value interface{}) {
		setFields = append(setFields, fmt.Sprintf("%s = $%d", column, argPosition))
		updated = append(updated, field)
		args = append(args, value)
		argPosition++
	}

	if update.Title != nil {
		add("title", "title", *update.Title)
	}
	if update.Destination != nil {
		destination, err := json.Marshal(update.Destination)
		if err != nil {
			return nil, fmt.Errorf("failed to encode destination: %w", err)
		}
		add("destination", "destination", destination)
	}
	if update.StartDate != nil && !update.StartDate.IsZero() {
		add("start_date", "startDate", *update.StartDate)
	}
	if update.EndDate != nil && !update.EndDate.IsZero() {
		add("end_date", "endDate", *update.EndDate)
	}
	if update.Visibility != nil {
		add("visibility", "visibility", string(*update.Visibility))
	}
	if update.Status != nil && *update.Status != "" {
		add("status", "status", string(*update.Status))
	}
	if update.Lodging != nil {
		lodging, err := json.Marshal(update.Lodging)
		if err != nil {
			return nil, fmt.Errorf("failed to encode lodging: %w", err)
		}
		add("lodging", "lodging", lodging)
	}

	if len(args) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
        UPDATE travel_plans
        SET %s
        WHERE id = $%d AND deleted_at IS NULL`,
		strings.Join(setFields, ", "),
		argPosition,
	)
	args = append(args, id)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update plan fields: %w", err)
	}
	return updated, nil
}

// ReplaceItinerary stores a complete itinerary document on a plan that has
// none yet. The emptiness guard runs in SQL so two racing first saves cannot
// both land.
func (s *pgPlanStore) ReplaceItinerary(ctx context.Context, id string, sections []types.Section) (*types.UpdatedFieldsAck, error) {
	document, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode itinerary: %w", err)
	}

	var newVersion int64
	err = s.db.QueryRow(ctx, `
        UPDATE travel_plans
        SET itinerary = $2::jsonb, version = version + 1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND itinerary = '[]'::jsonb AND deleted_at IS NULL
        RETURNING version`,
		id, document,
	).Scan(&newVersion)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetPlan(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.NewConflictError(
				"Itinerary already exists",
				"use the partial update path so concurrent edits are preserved",
			)
		}
		return nil, fmt.Errorf("failed to replace itinerary: %w", err)
	}

	return &types.UpdatedFieldsAck{
		PlanID:        id,
		UpdatedFields: []string{"itinerary"},
		Version:       newVersion,
	}, nil
}

// UpdatePlanStatus writes through a derived status change. The update is
// conditional on the current status, so two readers racing the same
// transition issue one effective write; the loser is a no-op.
func (s *pgPlanStore) UpdatePlanStatus(ctx context.Context, id string, from, to types.PlanStatus) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE travel_plans
        SET status = $3, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND status = $2 AND deleted_at IS NULL`,
		id, string(from), string(to),
	)
	if err != nil {
		logger.GetLogger().Errorw("Failed to write through plan status", "planId", id, "error", err)
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Another reader already applied the identical transition.
		logger.GetLogger().Debugw("Plan status write-through was a no-op", "planId", id, "to", to)
	}
	return nil
}

// AddTripmate appends the user to the plan's tripmates exactly once.
// Re-adding an existing tripmate is a no-op, not an error.
func (s *pgPlanStore) AddTripmate(ctx context.Context, planID, userID string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE travel_plans
        SET tripmates = array_append(tripmates, $2), updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND NOT ($2 = ANY(tripmates)) AND deleted_at IS NULL`,
		planID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add tripmate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.GetLogger().Debugw("Tripmate already present or plan missing", "planId", planID, "userId", userID)
	}
	return nil
}

// SoftDeletePlan marks a plan archived by setting deleted_at.
func (s *pgPlanStore) SoftDeletePlan(ctx context.Context, id string) error {
	var returnedID string
	err := s.db.QueryRow(ctx, `
        UPDATE travel_plans
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING id`,
		id,
	).Scan(&returnedID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.PlanNotFound(id)
		}
		return fmt.Errorf("failed to archive plan: %w", err)
	}
	return nil
}

// scanPlan decodes one plan row, unmarshalling the JSONB document columns.
func scanPlan(row pgx.Row) (*types.TravelPlan, error) {
	var plan types.TravelPlan
	var destination, lodging, itinerary []byte

	err := row.Scan(
		&plan.ID,
		&plan.Title,
		&destination,
		&plan.StartDate,
		&plan.EndDate,
		&plan.Visibility,
		&plan.Status,
		&plan.AuthorID,
		&plan.Tripmates,
		&lodging,
		&itinerary,
		&plan.Version,
		&plan.CreatedAt,
		&plan.UpdatedAt,
		&plan.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(destination) > 0 {
		if err := json.Unmarshal(destination, &plan.Destination); err != nil {
			return nil, fmt.Errorf("failed to decode destination: %w", err)
		}
	}
	if len(lodging) > 0 && string(lodging) != "null" {
		if err := json.Unmarshal(lodging, &plan.Lodging); err != nil {
			return nil, fmt.Errorf("failed to decode lodging: %w", err)
		}
	}
	if len(itinerary) > 0 {
		if err := json.Unmarshal(itinerary, &plan.Itinerary); err != nil {
			return nil, fmt.Errorf("failed to decode itinerary: %w", err)
		}
	}
	return &plan, nil
}
