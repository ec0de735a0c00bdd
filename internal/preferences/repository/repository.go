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

var ErrNotFound = errors.New("preferences not found")

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Preferences is the tenant's communication policy row. Exactly one per
// tenant; absence means factory defaults.
type Preferences struct {
	TenantID          uuid.UUID
	DefaultChannel    domain.Channel
	ChannelTemplates  map[string]string
	WorkingHoursStart string
	WorkingHoursEnd   string
	MaxDailyOutreach  int
	ScoringWeights    map[string]float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const prefColumns = `tenant_id, default_channel, channel_templates, working_hours_start,
		working_hours_end, max_daily_outreach, scoring_weights, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID) (Preferences, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prefColumns+`
		FROM communication_preferences
		WHERE tenant_id = $1
	`, tenantID)

	prefs, err := scanPreferences(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Preferences{}, ErrNotFound
	}
	return prefs, err
}

// Upsert replaces the tenant's preference row.
func (r *Repository) Upsert(ctx context.Context, prefs Preferences) (Preferences, error) {
	templatesJSON, err := json.Marshal(prefs.ChannelTemplates)
	if err != nil {
		return Preferences{}, err
	}

	var weightsJSON []byte
	if prefs.ScoringWeights != nil {
		weightsJSON, err = json.Marshal(prefs.ScoringWeights)
		if err != nil {
			return Preferences{}, err
		}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO communication_preferences
			(tenant_id, default_channel, channel_templates, working_hours_start,
			 working_hours_end, max_daily_outreach, scoring_weights)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			default_channel = EXCLUDED.default_channel,
			channel_templates = EXCLUDED.channel_templates,
			working_hours_start = EXCLUDED.working_hours_start,
			working_hours_end = EXCLUDED.working_hours_end,
			max_daily_outreach = EXCLUDED.max_daily_outreach,
			scoring_weights = EXCLUDED.scoring_weights,
			updated_at = now()
		RETURNING `+prefColumns,
		prefs.TenantID, string(prefs.DefaultChannel), templatesJSON,
		prefs.WorkingHoursStart, prefs.WorkingHoursEnd, prefs.MaxDailyOutreach, weightsJSON,
	)

	return scanPreferences(row)
}

func scanPreferences(row pgx.Row) (Preferences, error) {
	var prefs Preferences
	var channel string
	var templatesJSON, weightsJSON []byte

	err := row.Scan(
		&prefs.TenantID, &channel, &templatesJSON, &prefs.WorkingHoursStart,
		&prefs.WorkingHoursEnd, &prefs.MaxDailyOutreach, &weightsJSON,
		&prefs.CreatedAt, &prefs.UpdatedAt,
	)
	if err != nil {
		return Preferences{}, err
	}

	prefs.DefaultChannel = domain.Channel(channel)
	if len(templatesJSON) > 0 {
		_ = json.Unmarshal(templatesJSON, &prefs.ChannelTemplates)
	}
	if len(weightsJSON) > 0 {
		_ = json.Unmarshal(weightsJSON, &prefs.ScoringWeights)
	}
	return prefs, nil
}
