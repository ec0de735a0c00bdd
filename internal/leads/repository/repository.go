package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	FirstName       string
	LastName        string
	Email           *string
	Phone           *string
	Source          domain.LeadSource
	Status          domain.LeadStatus
	Score           float64
	ScoringFactors  map[string]float64
	AssignedAgentID *uuid.UUID
	LastContactedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateLeadParams struct {
	TenantID        uuid.UUID
	FirstName       string
	LastName        string
	Email           *string
	Phone           *string
	Source          domain.LeadSource
	AssignedAgentID *uuid.UUID
}

const leadColumns = `id, tenant_id, first_name, last_name, email, phone, source, status,
		score, scoring_factors, assigned_agent_id, last_contacted_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (tenant_id, first_name, last_name, email, phone, source, assigned_agent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+leadColumns,
		params.TenantID, params.FirstName, params.LastName, params.Email,
		params.Phone, string(params.Source), params.AssignedAgentID,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ListParams filters and pages the tenant's leads.
type ListParams struct {
	TenantID uuid.UUID
	Status   *domain.LeadStatus
	Source   *domain.LeadSource
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, error) {
	if params.Limit < 1 || params.Limit > 200 {
		params.Limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1
			AND ($2::text IS NULL OR status = $2)
			AND ($3::text IS NULL OR source = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, params.TenantID, statusArg(params.Status), sourceArg(params.Source), params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

type UpdateLeadParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Source    *domain.LeadSource
}

func (r *Repository) Update(ctx context.Context, id, tenantID uuid.UUID, params UpdateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			email = COALESCE($5, email),
			phone = COALESCE($6, phone),
			source = COALESCE($7, source),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		id, tenantID, params.FirstName, params.LastName, params.Email, params.Phone, sourceArg(params.Source),
	)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateStatus moves the lead through the funnel and returns the previous status.
func (r *Repository) UpdateStatus(ctx context.Context, id, tenantID uuid.UUID, status domain.LeadStatus) (domain.LeadStatus, error) {
	var previous string
	err := r.pool.QueryRow(ctx, `
		UPDATE leads l SET status = $3, updated_at = now()
		FROM (SELECT status FROM leads WHERE id = $1 AND tenant_id = $2 FOR UPDATE) old
		WHERE l.id = $1 AND l.tenant_id = $2
		RETURNING old.status
	`, id, tenantID, string(status)).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.LeadStatus(previous), nil
}

func (r *Repository) Assign(ctx context.Context, id, tenantID uuid.UUID, agentID *uuid.UUID) (*uuid.UUID, error) {
	var previous *uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE leads l SET assigned_agent_id = $3, updated_at = now()
		FROM (SELECT assigned_agent_id FROM leads WHERE id = $1 AND tenant_id = $2 FOR UPDATE) old
		WHERE l.id = $1 AND l.tenant_id = $2
		RETURNING old.assigned_agent_id
	`, id, tenantID, agentID).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// UpdateScore stores a freshly computed score and its factor breakdown.
// The score columns are owned by the scoring engine; nothing else writes them.
func (r *Repository) UpdateScore(ctx context.Context, id, tenantID uuid.UUID, score float64, factors map[string]float64) error {
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET score = $3, scoring_factors = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, score, factorsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastContacted records the most recent contact moment for recency scoring.
func (r *Repository) TouchLastContacted(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET last_contacted_at = GREATEST(COALESCE(last_contacted_at, $3), $3), updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, at)
	return err
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var source, status string
	var factorsJSON []byte

	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&source, &status, &lead.Score, &factorsJSON, &lead.AssignedAgentID,
		&lead.LastContactedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}

	lead.Source = domain.LeadSource(source)
	lead.Status = domain.LeadStatus(status)
	if len(factorsJSON) > 0 {
		_ = json.Unmarshal(factorsJSON, &lead.ScoringFactors)
	}
	return lead, nil
}

func statusArg(status *domain.LeadStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func sourceArg(source *domain.LeadSource) *string {
	if source == nil {
		return nil
	}
	s := string(*source)
	return &s
}
