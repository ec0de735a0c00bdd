package repository

import (
	"context"
	"errors"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("interaction not found")

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Interaction is one logged contact moment with a lead. Rows are append-only;
// only delivery_status, outcome, and recording_key may change after insert.
type Interaction struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	LeadID            uuid.UUID
	Channel           domain.Channel
	Outcome           domain.InteractionOutcome
	StartTime         time.Time
	DurationSeconds   *int
	ProviderMessageID *string
	DeliveryStatus    *string
	RecordingKey      *string
	Notes             *string
	CreatedAt         time.Time
}

type CreateParams struct {
	TenantID          uuid.UUID
	LeadID            uuid.UUID
	Channel           domain.Channel
	Outcome           domain.InteractionOutcome
	StartTime         time.Time
	DurationSeconds   *int
	ProviderMessageID *string
	Notes             *string
}

const interactionColumns = `id, tenant_id, lead_id, channel, outcome, start_time,
		duration_seconds, provider_message_id, delivery_status, recording_key, notes, created_at`

func (r *Repository) Create(ctx context.Context, params CreateParams) (Interaction, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO interactions (tenant_id, lead_id, channel, outcome, start_time,
			duration_seconds, provider_message_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+interactionColumns,
		params.TenantID, params.LeadID, string(params.Channel), string(params.Outcome),
		params.StartTime, params.DurationSeconds, params.ProviderMessageID, params.Notes,
	)
	return scanInteraction(row)
}

func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (Interaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	item, err := scanInteraction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Interaction{}, ErrNotFound
	}
	return item, err
}

// ListByLead returns the lead's interactions newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID, tenantID uuid.UUID, limit, offset int) ([]Interaction, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY start_time DESC
		LIMIT $3 OFFSET $4
	`, leadID, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Interaction, 0)
	for rows.Next() {
		item, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateOutcome corrects the recorded outcome of an interaction, e.g. when a
// pending call attempt later turns out to have connected.
func (r *Repository) UpdateOutcome(ctx context.Context, id, tenantID uuid.UUID, outcome domain.InteractionOutcome) (Interaction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE interactions SET outcome = $3
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+interactionColumns,
		id, tenantID, string(outcome),
	)

	item, err := scanInteraction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Interaction{}, ErrNotFound
	}
	return item, err
}

// UpdateDeliveryByProviderID stamps the provider's delivery status on the
// interaction that carries the given provider message id.
func (r *Repository) UpdateDeliveryByProviderID(ctx context.Context, tenantID uuid.UUID, providerMessageID, deliveryStatus string) (Interaction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE interactions SET delivery_status = $3
		WHERE tenant_id = $1 AND provider_message_id = $2
		RETURNING `+interactionColumns,
		tenantID, providerMessageID, deliveryStatus,
	)

	item, err := scanInteraction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Interaction{}, ErrNotFound
	}
	return item, err
}

// SetRecordingKey attaches an uploaded call recording to an interaction.
func (r *Repository) SetRecordingKey(ctx context.Context, id, tenantID uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE interactions SET recording_key = $3
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ScoringSample is the slim interaction view the scoring engine consumes.
type ScoringSample struct {
	Channel   domain.Channel
	Outcome   domain.InteractionOutcome
	StartTime time.Time
}

// ListForScoring returns the lead's most recent interactions inside the
// lookback window, newest first, capped at limit.
func (r *Repository) ListForScoring(ctx context.Context, leadID, tenantID uuid.UUID, since time.Time, limit int) ([]ScoringSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel, outcome, start_time
		FROM interactions
		WHERE lead_id = $1 AND tenant_id = $2 AND start_time >= $3
		ORDER BY start_time DESC
		LIMIT $4
	`, leadID, tenantID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]ScoringSample, 0)
	for rows.Next() {
		var sample ScoringSample
		var channel, outcome string
		if err := rows.Scan(&channel, &outcome, &sample.StartTime); err != nil {
			return nil, err
		}
		sample.Channel = domain.Channel(channel)
		sample.Outcome = domain.InteractionOutcome(outcome)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func scanInteraction(row pgx.Row) (Interaction, error) {
	var item Interaction
	var channel, outcome string

	err := row.Scan(
		&item.ID, &item.TenantID, &item.LeadID, &channel, &outcome, &item.StartTime,
		&item.DurationSeconds, &item.ProviderMessageID, &item.DeliveryStatus,
		&item.RecordingKey, &item.Notes, &item.CreatedAt,
	)
	if err != nil {
		return Interaction{}, err
	}

	item.Channel = domain.Channel(channel)
	item.Outcome = domain.InteractionOutcome(outcome)
	return item, nil
}
