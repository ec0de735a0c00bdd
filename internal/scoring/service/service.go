// Package service orchestrates score recalculation: it pulls the lead's
// contact data and interaction history, asks the pure engine for a score,
// and persists the snapshot plus the lead's score column.
package service

import (
	"context"
	"time"

	"estate_crm_backend/internal/interactions/repository"
	leadrepo "estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/internal/scoring/engine"
	scorerepo "estate_crm_backend/internal/scoring/repository"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadStore is the slice of the leads repository scoring needs.
type LeadStore interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (leadrepo.Lead, error)
	UpdateScore(ctx context.Context, id, tenantID uuid.UUID, score float64, factors map[string]float64) error
}

// InteractionHistory is the slice of the interactions repository scoring needs.
type InteractionHistory interface {
	ListForScoring(ctx context.Context, leadID, tenantID uuid.UUID, since time.Time, limit int) ([]repository.ScoringSample, error)
}

// WeightSource resolves the tenant's scoring weights; satisfied by the
// preferences service.
type WeightSource interface {
	ScoringWeights(ctx context.Context, tenantID uuid.UUID) (engine.Weights, error)
}

type Service struct {
	leads        LeadStore
	history      InteractionHistory
	weights      WeightSource
	snapshots    *scorerepo.Repository
	lookbackDays int
	maxSamples   int
	log          *logger.Logger
	now          func() time.Time
}

func New(leads LeadStore, history InteractionHistory, weights WeightSource, snapshots *scorerepo.Repository, cfg config.ScoringConfig, log *logger.Logger) *Service {
	return &Service{
		leads:        leads,
		history:      history,
		weights:      weights,
		snapshots:    snapshots,
		lookbackDays: cfg.GetScoringLookbackDays(),
		maxSamples:   cfg.GetScoringMaxInteractions(),
		log:          log,
		now:          time.Now,
	}
}

// Recalculate recomputes and persists the lead's score. A lead without
// interaction history gets the deterministic contact-data baseline.
func (s *Service) Recalculate(ctx context.Context, leadID, tenantID uuid.UUID) (scorerepo.Snapshot, error) {
	lead, err := s.leads.GetByID(ctx, leadID, tenantID)
	if err == leadrepo.ErrNotFound {
		return scorerepo.Snapshot{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return scorerepo.Snapshot{}, apperr.Wrap(apperr.KindInternal, "load lead for scoring", err)
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -s.lookbackDays)
	samples, err := s.history.ListForScoring(ctx, leadID, tenantID, since, s.maxSamples)
	if err != nil {
		return scorerepo.Snapshot{}, apperr.Wrap(apperr.KindInternal, "load interaction history", err)
	}

	weights, err := s.weights.ScoringWeights(ctx, tenantID)
	if err != nil {
		// Tenant tuning is optional; score with defaults rather than fail.
		s.log.Warn("scoring weights lookup failed, using defaults",
			"tenant_id", tenantID, "error", err)
		weights = engine.DefaultWeights()
	}

	contact := engine.Contact{
		HasEmail: lead.Email != nil && *lead.Email != "",
		HasPhone: lead.Phone != nil && *lead.Phone != "",
	}
	history := make([]engine.Interaction, 0, len(samples))
	for _, sample := range samples {
		history = append(history, engine.Interaction{
			Outcome: sample.Outcome,
			At:      sample.StartTime,
		})
	}

	score, factors := engine.Compute(contact, history, weights, now)

	snapshot, err := s.snapshots.Upsert(ctx, scorerepo.Snapshot{
		LeadID:   leadID,
		TenantID: tenantID,
		Score:    score,
		Factors:  factors,
	})
	if err != nil {
		return scorerepo.Snapshot{}, apperr.Wrap(apperr.KindInternal, "persist score snapshot", err)
	}

	if err := s.leads.UpdateScore(ctx, leadID, tenantID, score, factors); err != nil {
		return scorerepo.Snapshot{}, apperr.Wrap(apperr.KindInternal, "update lead score", err)
	}

	return snapshot, nil
}

// Snapshot returns the stored score breakdown for a lead.
func (s *Service) Snapshot(ctx context.Context, leadID, tenantID uuid.UUID) (scorerepo.Snapshot, error) {
	snapshot, err := s.snapshots.Get(ctx, leadID, tenantID)
	if err == scorerepo.ErrNotFound {
		// Never scored yet; compute on demand.
		return s.Recalculate(ctx, leadID, tenantID)
	}
	if err != nil {
		return scorerepo.Snapshot{}, apperr.Wrap(apperr.KindInternal, "get score snapshot", err)
	}
	return snapshot, nil
}
