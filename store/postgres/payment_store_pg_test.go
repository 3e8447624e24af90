package postgres

import (
	"context"
	"regexp"
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
	testPaymentID = "c5e7d8a2-11aa-4a7e-93dd-2a297cf2bb10"
	testBookingID = "9f1b52ee-4c6f-43cf-9335-0f6f4a2f3d77"
)

func paymentRowColumns() []string {
	return []string{
		"id", "booking_id", "user_id", "amount", "currency", "status",
		"provider_ref", "retry_count", "notes", "created_at", "updated_at",
	}
}

func samplePaymentRow(status types.PaymentStatus, retryCount int) *pgxmock.Rows {
	now := time.Now().UTC()
	ref := "pi_12345"
	return pgxmock.NewRows(paymentRowColumns()).AddRow(
		testPaymentID,
		testBookingID,
		testUserID,
		int64(45600),
		"EUR",
		status,
		&ref,
		retryCount,
		[]byte(`[{"at":"2025-06-01T10:00:00Z","message":"intent created with gateway"}]`),
		now,
		now,
	)
}

func TestPaymentStoreCreatePayment(t *testing.T) {
	mock := setupMock(t)
	s := NewPgPaymentStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments")).
		WithArgs(testBookingID, testUserID, int64(45600), "EUR", string(types.PaymentStatusPending)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testPaymentID))

	id, err := s.CreatePayment(context.Background(), &types.Payment{
		BookingID: testBookingID,
		UserID:    testUserID,
		Amount:    45600,
		Currency:  "EUR",
		Status:    types.PaymentStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, testPaymentID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentStoreTransitionPayment(t *testing.T) {
	t.Run("guarded transition applies and appends a note", func(t *testing.T) {
		mock := setupMock(t)
		s := NewPgPaymentStore(mock)

		mock.ExpectExec(regexp.QuoteMeta("notes = notes || $4::jsonb")).
			WithArgs(testPaymentID, string(types.PaymentStatusPending),
				string(types.PaymentStatusProcessing), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.TransitionPayment(context.Background(), testPaymentID,
			types.PaymentStatusPending, types.PaymentStatusProcessing, "intent created"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("illegal transition rejected before touching the database", func(t *testing.T) {
		mock := setupMock(t)
		s := NewPgPaymentStore(mock)

		err := s.TransitionPayment(context.Background(), testPaymentID,
			types.PaymentStatusSucceeded, types.PaymentStatusPending, "")
		require.Error(t, err)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.InvalidStatusTransitionError, appErr.Type)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("raced transition reports the actual current status", func(t *testing.T) {
		mock := setupMock(t)
		s := NewPgPaymentStore(mock)

		mock.ExpectExec(regexp.QuoteMeta("notes = notes || $4::jsonb")).
			WithArgs(testPaymentID, string(types.PaymentStatusProcessing),
				string(types.PaymentStatusSucceeded), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery("SELECT(.|\n)*FROM payments").
			WithArgs(testPaymentID).
			WillReturnRows(samplePaymentRow(types.PaymentStatusFailed, 0))

		err := s.TransitionPayment(context.Background(), testPaymentID,
			types.PaymentStatusProcessing, types.PaymentStatusSucceeded, "webhook")
		require.Error(t, err)
		appErr := err.(*apperrors.AppError)
		assert.Equal(t, apperrors.InvalidStatusTransitionError, appErr.Type)
		assert.Contains(t, appErr.Detail, "FAILED")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentStoreResetStuckPayment(t *testing.T) {
	t.Run("processing payment resets with retry count and note", func(t *testing.T) {
		mock := setupMock(t)
		s := NewPgPaymentStore(mock)

		mock.ExpectQuery(regexp.QuoteMeta("retry_count = retry_count + 1")).
			WithArgs(testPaymentID, string(types.PaymentStatusPending),
				pgxmock.AnyArg(), string(types.PaymentStatusProcessing)).
			WillReturnRows(samplePaymentRow(types.PaymentStatusPending, 1))

		payment, err := s.ResetStuckPayment(context.Background(), testPaymentID)
		require.NoError(t, err)
		assert.Equal(t, types.PaymentStatusPending, payment.Status)
		assert.Equal(t, 1, payment.RetryCount)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-processing payment is an invalid transition", func(t *testing.T) {
		mock := setupMock(t)
		s := NewPgPaymentStore(mock)

		mock.ExpectQuery(regexp.QuoteMeta("retry_count = retry_count + 1")).
			WithArgs(testPaymentID, string(types.PaymentStatusPending),
				pgxmock.AnyArg(), string(types.PaymentStatusProcessing)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT(.|\n)*FROM payments").
			WithArgs(testPaymentID).
			WillReturnRows(samplePaymentRow(types.PaymentStatusSucceeded, 0))

		_, err := s.ResetStuckPayment(context.Background(), testPaymentID)
		require.Error(t, err)
		appErr := err.(*apperrors.AppError)
		assert.Equal(t, apperrors.InvalidStatusTransitionError, appErr.Type)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing payment is not found", func(t *testing.T) {
		mock := setupMock(t)
		s := NewPgPaymentStore(mock)

		mock.ExpectQuery(regexp.QuoteMeta("retry_count = retry_count + 1")).
			WithArgs(testPaymentID, string(types.PaymentStatusPending),
				pgxmock.AnyArg(), string(types.PaymentStatusProcessing)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT(.|\n)*FROM payments").
			WithArgs(testPaymentID).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.ResetStuckPayment(context.Background(), testPaymentID)
		require.Error(t, err)
		appErr := err.(*apperrors.AppError)
		assert.Equal(t, apperrors.NotFoundError, appErr.Type)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentStoreGetPaymentByProviderRef(t *testing.T) {
	mock := setupMock(t)
	s := NewPgPaymentStore(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE provider_ref = $1")).
		WithArgs("pi_12345").
		WillReturnRows(samplePaymentRow(types.PaymentStatusProcessing, 0))

	payment, err := s.GetPaymentByProviderRef(context.Background(), "pi_12345")
	require.NoError(t, err)
	assert.Equal(t, "pi_12345", payment.ProviderRef)
	require.Len(t, payment.Notes, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
