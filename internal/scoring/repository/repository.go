package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"estate_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("score snapshot not found")

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Snapshot is the one-to-one score record per lead. Recalculation replaces
// it wholesale.
type Snapshot struct {
	LeadID      uuid.UUID
	TenantID    uuid.UUID
	Score       float64
	Factors     map[string]float64
	LastUpdated time.Time
}

// Upsert replaces the lead's snapshot.
func (r *Repository) Upsert(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	factorsJSON, err := json.Marshal(snapshot.Factors)
	if err != nil {
		return Snapshot{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO lead_score_snapshots (lead_id, tenant_id, score, scoring_factors, last_updated)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (lead_id) DO UPDATE SET
			score = EXCLUDED.score,
			scoring_factors = EXCLUDED.scoring_factors,
			last_updated = now()
		RETURNING lead_id, tenant_id, score, scoring_factors, last_updated
	`, snapshot.LeadID, snapshot.TenantID, snapshot.Score, factorsJSON)

	return scanSnapshot(row)
}

func (r *Repository) Get(ctx context.Context, leadID, tenantID uuid.UUID) (Snapshot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT lead_id, tenant_id, score, scoring_factors, last_updated
		FROM lead_score_snapshots
		WHERE lead_id = $1 AND tenant_id = $2
	`, leadID, tenantID)

	snapshot, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	return snapshot, err
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var snapshot Snapshot
	var factorsJSON []byte

	err := row.Scan(&snapshot.LeadID, &snapshot.TenantID, &snapshot.Score, &factorsJSON, &snapshot.LastUpdated)
	if err != nil {
		return Snapshot{}, err
	}
	if len(factorsJSON) > 0 {
		_ = json.Unmarshal(factorsJSON, &snapshot.Factors)
	}
	return snapshot, nil
}
