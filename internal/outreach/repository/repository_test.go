package repository

import (
	"context"
	"testing"
	"time"

	"estate_crm_backend/internal/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attemptRows(mock pgxmock.PgxPoolIface, attempt Attempt) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "tenant_id", "lead_id", "channel", "message", "template_id", "status",
		"scheduled_at", "sent_at", "delivered_at", "read_at", "retry_count", "last_retry_at",
		"error_message", "provider_message_id", "created_at", "updated_at",
	}).AddRow(
		attempt.ID, attempt.TenantID, attempt.LeadID, string(attempt.Channel), attempt.Message,
		attempt.TemplateID, string(attempt.Status), attempt.ScheduledAt, attempt.SentAt,
		attempt.DeliveredAt, attempt.ReadAt, attempt.RetryCount, attempt.LastRetryAt,
		attempt.ErrorMessage, attempt.ProviderMessageID, attempt.CreatedAt, attempt.UpdatedAt,
	)
}

func TestCancelWinsWhenStillCancellable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()
	now := time.Now()

	cancelled := Attempt{
		ID:        id,
		TenantID:  tenantID,
		LeadID:    uuid.New(),
		Channel:   domain.ChannelEmail,
		Message:   "hello",
		Status:    domain.AttemptCancelled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery(`UPDATE outreach_attempts`).
		WithArgs(id, tenantID).
		WillReturnRows(attemptRows(mock, cancelled))

	attempt, err := repo.Cancel(context.Background(), id, tenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptCancelled, attempt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReportsStaleWhenAlreadySent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()

	// Conditional UPDATE matches no row; the follow-up existence probe says
	// the row exists, so the state is stale rather than missing.
	mock.ExpectQuery(`UPDATE outreach_attempts`).
		WithArgs(id, tenantID).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(id, tenantID).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	_, err = repo.Cancel(context.Background(), id, tenantID)
	assert.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReportsNotFoundForMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()

	mock.ExpectQuery(`UPDATE outreach_attempts`).
		WithArgs(id, tenantID).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(id, tenantID).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.Cancel(context.Background(), id, tenantID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimForRetryRespectsCeiling(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()

	mock.ExpectQuery(`UPDATE outreach_attempts`).
		WithArgs(id, tenantID, 3).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(id, tenantID).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	_, err = repo.ClaimForRetry(context.Background(), id, tenantID, 3)
	assert.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDispatchedBetween(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	tenantID := uuid.New()
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(tenantID, from, to).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountDispatchedBetween(context.Background(), tenantID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
