package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/store"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// Ensure pgPaymentStore implements store.PaymentStore.
var _ store.PaymentStore = (*pgPaymentStore)(nil)

type pgPaymentStore struct {
	db DB
}

// NewPgPaymentStore creates a new PostgreSQL payment store.
func NewPgPaymentStore(db DB) store.PaymentStore {
	return &pgPaymentStore{db: db}
}

const paymentColumns = `
	id, booking_id, user_id, amount, currency, status, provider_ref,
	retry_count, notes, created_at, updated_at`

// CreatePayment inserts a new payment record and returns its id.
func (s *pgPaymentStore) CreatePayment(ctx context.Context, payment *types.Payment) (string, error) {
	var paymentID string
	err := s.db.QueryRow(ctx, `
        INSERT INTO payments (booking_id, user_id, amount, currency, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`,
		payment.BookingID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		string(payment.Status),
	).Scan(&paymentID)

	if err != nil {
		logger.GetLogger().Errorw("Failed to create payment", "bookingId", payment.BookingID, "error", err)
		return "", fmt.Errorf("failed to insert payment: %w", err)
	}
	return paymentID, nil
}

// GetPayment retrieves a payment by id.
func (s *pgPaymentStore) GetPayment(ctx context.Context, id string) (*types.Payment, error) {
	row := s.db.QueryRow(ctx, `
        SELECT`+paymentColumns+`
        FROM payments
        WHERE id = $1`,
		id,
	)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment", id)
		}
		return nil, fmt.Errorf("failed to execute GetPayment query: %w", err)
	}
	return payment, nil
}

// GetPaymentByProviderRef retrieves a payment by the gateway's intent id,
// used when consuming webhooks.
func (s *pgPaymentStore) GetPaymentByProviderRef(ctx context.Context, providerRef string) (*types.Payment, error) {
	row := s.db.QueryRow(ctx, `
        SELECT`+paymentColumns+`
        FROM payments
        WHERE provider_ref = $1`,
		providerRef,
	)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment", providerRef)
		}
		return nil, fmt.Errorf("failed to execute GetPaymentByProviderRef query: %w", err)
	}
	return payment, nil
}

// SetProviderRef records the gateway intent id on the payment.
func (s *pgPaymentStore) SetProviderRef(ctx context.Context, id, providerRef string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE payments
        SET provider_ref = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`,
		id, providerRef,
	)
	if err != nil {
		return fmt.Errorf("failed to set provider ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("payment", id)
	}
	return nil
}

// TransitionPayment moves a payment between states. Guarded in SQL on the
// current status: a concurrent webhook for the same transition applies once,
// and an illegal transition is rejected without touching the row.
func (s *pgPaymentStore) TransitionPayment(ctx context.Context, id string, from, to types.PaymentStatus, note string) error {
	if !from.IsValidTransition(to) {
		return apperrors.InvalidStatusTransition(from.String(), to.String())
	}

	noteEntry, err := encodeNote(note)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
        UPDATE payments
        SET status = $3,
            notes = notes || $4::jsonb,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND status = $2`,
		id, string(from), string(to), noteEntry,
	)
	if err != nil {
		return fmt.Errorf("failed to transition payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, getErr := s.GetPayment(ctx, id)
		if getErr != nil {
			return getErr
		}
		return apperrors.InvalidStatusTransition(current.Status.String(), to.String())
	}
	return nil
}

// ResetStuckPayment is the single manual recovery transition: PROCESSING
// back to PENDING. The guard, the retry counter and the audit note land in
// one statement so there is no read-modify-write race with a late webhook.
func (s *pgPaymentStore) ResetStuckPayment(ctx context.Context, id string) (*types.Payment, error) {
	noteEntry, err := encodeNote("payment reset to PENDING after stuck PROCESSING")
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
        UPDATE payments
        SET status = $2,
            retry_count = retry_count + 1,
            notes = notes || $3::jsonb,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND status = $4
        RETURNING`+paymentColumns,
		id, string(types.PaymentStatusPending), noteEntry, string(types.PaymentStatusProcessing),
	)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the payment is missing or it is not PROCESSING; look it
			// up once to tell the two apart.
			current, getErr := s.GetPayment(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.InvalidStatusTransition(current.Status.String(), types.PaymentStatusPending.String())
		}
		return nil, fmt.Errorf("failed to reset payment: %w", err)
	}

	logger.GetLogger().Infow("Reset stuck payment", "paymentId", id, "retryCount", payment.RetryCount)
	return payment, nil
}

// encodeNote builds a single-element JSONB array holding one audit note, for
// appending to the payment's append-only notes column.
func encodeNote(message string) ([]byte, error) {
	if message == "" {
		return []byte("[]"), nil
	}
	entry, err := json.Marshal([]types.PaymentNote{{At: time.Now().UTC(), Message: message}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment note: %w", err)
	}
	return entry, nil
}

func scanPayment(row pgx.Row) (*types.Payment, error) {
	var payment types.Payment
	var providerRef *string
	var notes []byte

	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&providerRef,
		&payment.RetryCount,
		&notes,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if providerRef != nil {
		payment.ProviderRef = *providerRef
	}
	if len(notes) > 0 && string(notes) != "null" {
		if err := json.Unmarshal(notes, &payment.Notes); err != nil {
			return nil, fmt.Errorf("failed to decode payment notes: %w", err)
		}
	}
	return &payment, nil
}
