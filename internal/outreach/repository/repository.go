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

var (
	ErrNotFound = errors.New("outreach attempt not found")
	// ErrStaleState is returned when a conditional transition matched no row
	// because the attempt is no longer in an eligible status. The caller maps
	// this to an invalid-transition error.
	ErrStaleState = errors.New("attempt is not in an eligible status")
)

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Attempt is one outreach message and its delivery lifecycle. Status moves
// through the attempt state machine; retries mutate retry_count on this same
// row rather than spawning new rows.
type Attempt struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	LeadID            uuid.UUID
	Channel           domain.Channel
	Message           string
	TemplateID        *string
	Status            domain.AttemptStatus
	ScheduledAt       *time.Time
	SentAt            *time.Time
	DeliveredAt       *time.Time
	ReadAt            *time.Time
	RetryCount        int
	LastRetryAt       *time.Time
	ErrorMessage      *string
	ProviderMessageID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateParams struct {
	TenantID    uuid.UUID
	LeadID      uuid.UUID
	Channel     domain.Channel
	Message     string
	TemplateID  *string
	Status      domain.AttemptStatus
	ScheduledAt *time.Time
}

const attemptColumns = `id, tenant_id, lead_id, channel, message, template_id, status,
		scheduled_at, sent_at, delivered_at, read_at, retry_count, last_retry_at,
		error_message, provider_message_id, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, params CreateParams) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO outreach_attempts (tenant_id, lead_id, channel, message, template_id, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+attemptColumns,
		params.TenantID, params.LeadID, string(params.Channel), params.Message,
		params.TemplateID, string(params.Status), params.ScheduledAt,
	)
	return scanAttempt(row)
}

func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM outreach_attempts
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return attempt, err
}

// GetByProviderMessageID looks an attempt up by the gateway's message id.
// Used by the delivery callback path, which carries no tenant context.
func (r *Repository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM outreach_attempts
		WHERE provider_message_id = $1
	`, providerMessageID)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return attempt, err
}

func (r *Repository) ListByLead(ctx context.Context, leadID, tenantID uuid.UUID, limit, offset int) ([]Attempt, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM outreach_attempts
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, leadID, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// ClaimForSend moves a pending or scheduled attempt to sent. The conditional
// UPDATE makes concurrent dispatchers and cancels serialize: at most one
// caller wins the claim.
func (r *Repository) ClaimForSend(ctx context.Context, id, tenantID uuid.UUID) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_attempts
		SET status = 'sent', sent_at = now(), error_message = NULL, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status IN ('pending', 'scheduled')
		RETURNING `+attemptColumns,
		id, tenantID,
	)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, r.staleOrMissing(ctx, id, tenantID)
	}
	return attempt, err
}

// ClaimForRetry moves a failed attempt back to sent for another delivery
// try, bumping retry_count on the same row. Attempts at or over the ceiling
// are left terminal.
func (r *Repository) ClaimForRetry(ctx context.Context, id, tenantID uuid.UUID, ceiling int) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_attempts
		SET status = 'sent', sent_at = now(), retry_count = retry_count + 1,
			last_retry_at = now(), error_message = NULL, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'failed' AND retry_count < $3
		RETURNING `+attemptColumns,
		id, tenantID, ceiling,
	)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, r.staleOrMissing(ctx, id, tenantID)
	}
	return attempt, err
}

// Cancel withdraws an attempt that has not been handed to a provider yet.
// Single conditional UPDATE; an attempt past the point of no return leaves
// the row untouched and reports ErrStaleState.
func (r *Repository) Cancel(ctx context.Context, id, tenantID uuid.UUID) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_attempts
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status IN ('pending', 'scheduled')
		RETURNING `+attemptColumns,
		id, tenantID,
	)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, r.staleOrMissing(ctx, id, tenantID)
	}
	return attempt, err
}

// MarkFailed records a provider failure on a sent attempt.
func (r *Repository) MarkFailed(ctx context.Context, id, tenantID uuid.UUID, errorMessage string) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_attempts
		SET status = 'failed', error_message = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'sent'
		RETURNING `+attemptColumns,
		id, tenantID, errorMessage,
	)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, r.staleOrMissing(ctx, id, tenantID)
	}
	return attempt, err
}

// SetProviderMessageID stamps the gateway message id after a successful
// delivery handoff.
func (r *Repository) SetProviderMessageID(ctx context.Context, id, tenantID uuid.UUID, providerMessageID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outreach_attempts
		SET provider_message_id = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, providerMessageID)
	return err
}

// MarkDelivered advances a sent attempt on the provider's delivery receipt.
func (r *Repository) MarkDelivered(ctx context.Context, id, tenantID uuid.UUID) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_attempts
		SET status = 'delivered', delivered_at = now(), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'sent'
		RETURNING `+attemptColumns,
		id, tenantID,
	)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, r.staleOrMissing(ctx, id, tenantID)
	}
	return attempt, err
}

// MarkRead advances a delivered attempt on the provider's read receipt.
func (r *Repository) MarkRead(ctx context.Context, id, tenantID uuid.UUID) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_attempts
		SET status = 'read', read_at = now(), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'delivered'
		RETURNING `+attemptColumns,
		id, tenantID,
	)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, r.staleOrMissing(ctx, id, tenantID)
	}
	return attempt, err
}

// CountDispatchedBetween counts the tenant's attempts handed to a provider
// inside [from, to). Feeds the daily-cap policy check.
func (r *Repository) CountDispatchedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM outreach_attempts
		WHERE tenant_id = $1 AND sent_at >= $2 AND sent_at < $3
			AND status IN ('sent', 'delivered', 'read')
	`, tenantID, from, to).Scan(&count)
	return count, err
}

// ListDueScheduled returns scheduled attempts whose send time has arrived.
// The sweep enqueues them; the ClaimForSend CAS at dispatch time guarantees
// at most one winner even when two sweeps pick up the same row.
func (r *Repository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM outreach_attempts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func (r *Repository) staleOrMissing(ctx context.Context, id, tenantID uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM outreach_attempts WHERE id = $1 AND tenant_id = $2)
	`, id, tenantID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleState
}

func scanAttempt(row pgx.Row) (Attempt, error) {
	var attempt Attempt
	var channel, status string

	err := row.Scan(
		&attempt.ID, &attempt.TenantID, &attempt.LeadID, &channel, &attempt.Message,
		&attempt.TemplateID, &status, &attempt.ScheduledAt, &attempt.SentAt,
		&attempt.DeliveredAt, &attempt.ReadAt, &attempt.RetryCount, &attempt.LastRetryAt,
		&attempt.ErrorMessage, &attempt.ProviderMessageID, &attempt.CreatedAt, &attempt.UpdatedAt,
	)
	if err != nil {
		return Attempt{}, err
	}

	attempt.Channel = domain.Channel(channel)
	attempt.Status = domain.AttemptStatus(status)
	return attempt, nil
}
