// Package repository holds the read-only rollup queries behind the analytics
// reports. All aggregates are reporting-grade: windowed, eventually
// consistent, no snapshot isolation across queries.
package repository

import (
	"context"
	"time"

	"estate_crm_backend/platform/db"

	"github.com/google/uuid"
)

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Window bounds a report by lead/interaction creation time, [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// StatusCount is one funnel stage rollup.
type StatusCount struct {
	Status string
	Count  int
}

func (r *Repository) FunnelCounts(ctx context.Context, tenantID uuid.UUID, window Window) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY status
	`, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]StatusCount, 0)
	for rows.Next() {
		var item StatusCount
		if err := rows.Scan(&item.Status, &item.Count); err != nil {
			return nil, err
		}
		counts = append(counts, item)
	}
	return counts, rows.Err()
}

// ChannelStats is the per-channel interaction rollup.
type ChannelStats struct {
	Channel            string
	Total              int
	Successes          int
	AvgDurationSeconds *float64
}

func (r *Repository) ChannelPerformance(ctx context.Context, tenantID uuid.UUID, window Window) ([]ChannelStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel,
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'success'),
			AVG(duration_seconds)
		FROM interactions
		WHERE tenant_id = $1 AND start_time >= $2 AND start_time < $3
		GROUP BY channel
	`, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]ChannelStats, 0)
	for rows.Next() {
		var item ChannelStats
		if err := rows.Scan(&item.Channel, &item.Total, &item.Successes, &item.AvgDurationSeconds); err != nil {
			return nil, err
		}
		stats = append(stats, item)
	}
	return stats, rows.Err()
}

// SourceCount is one acquisition-source rollup.
type SourceCount struct {
	Source string
	Count  int
}

func (r *Repository) SourceDistribution(ctx context.Context, tenantID uuid.UUID, window Window) ([]SourceCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT source, COUNT(*)
		FROM leads
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY source
		ORDER BY COUNT(*) DESC
	`, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]SourceCount, 0)
	for rows.Next() {
		var item SourceCount
		if err := rows.Scan(&item.Source, &item.Count); err != nil {
			return nil, err
		}
		counts = append(counts, item)
	}
	return counts, rows.Err()
}

// DayActivity is one day of the activity timeline.
type DayActivity struct {
	Day          time.Time
	Interactions int
}

func (r *Repository) ActivityTimeline(ctx context.Context, tenantID uuid.UUID, window Window) ([]DayActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', start_time) AS day, COUNT(*)
		FROM interactions
		WHERE tenant_id = $1 AND start_time >= $2 AND start_time < $3
		GROUP BY day
		ORDER BY day
	`, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]DayActivity, 0)
	for rows.Next() {
		var item DayActivity
		if err := rows.Scan(&item.Day, &item.Interactions); err != nil {
			return nil, err
		}
		days = append(days, item)
	}
	return days, rows.Err()
}
