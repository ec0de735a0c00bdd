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

func leadRows(mock pgxmock.PgxPoolIface, lead Lead) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "tenant_id", "first_name", "last_name", "email", "phone", "source", "status",
		"score", "scoring_factors", "assigned_agent_id", "last_contacted_at", "created_at", "updated_at",
	}).AddRow(
		lead.ID, lead.TenantID, lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		string(lead.Source), string(lead.Status), lead.Score, []byte(`{}`), lead.AssignedAgentID,
		lead.LastContactedAt, lead.CreatedAt, lead.UpdatedAt,
	)
}

func TestGetByIDScopesByTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()
	now := time.Now()

	stored := Lead{
		ID:        id,
		TenantID:  tenantID,
		FirstName: "Eva",
		LastName:  "de Vries",
		Source:    domain.LeadSourceWebsite,
		Status:    domain.LeadStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery(`SELECT .+ FROM leads`).
		WithArgs(id, tenantID).
		WillReturnRows(leadRows(mock, stored))

	lead, err := repo.GetByID(context.Background(), id, tenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, lead.Status)
	assert.Equal(t, tenantID, lead.TenantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDReportsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM leads`).
		WithArgs(id, tenantID).
		WillReturnRows(mock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), id, tenantID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusReturnsPrevious(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()

	mock.ExpectQuery(`UPDATE leads`).
		WithArgs(id, tenantID, "contacted").
		WillReturnRows(mock.NewRows([]string{"status"}).AddRow("new"))

	previous, err := repo.UpdateStatus(context.Background(), id, tenantID, domain.LeadStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusNew, previous)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScoreReportsNotFoundForMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	tenantID := uuid.New()

	mock.ExpectExec(`UPDATE leads`).
		WithArgs(id, tenantID, 42.5, []byte(`{"recency":30}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateScore(context.Background(), id, tenantID, 42.5, map[string]float64{"recency": 30})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
