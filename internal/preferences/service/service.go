// Package service implements the communication preference resolver: one
// policy row per tenant with working hours, daily caps, channel templates,
// and scoring weights. Missing rows resolve to factory defaults.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/internal/preferences/repository"
	"estate_crm_backend/internal/preferences/transport"
	"estate_crm_backend/internal/scoring/engine"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Factory defaults applied when a tenant has no preference row.
const (
	DefaultChannel           = domain.ChannelEmail
	DefaultWorkingHoursStart = "09:00"
	DefaultWorkingHoursEnd   = "18:00"
	DefaultMaxDailyOutreach  = 100
)

// AttemptCounter counts the tenant's dispatched outreach for a day window;
// satisfied by the outreach repository.
type AttemptCounter interface {
	CountDispatchedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int, error)
}

type Service struct {
	repo     *repository.Repository
	attempts AttemptCounter
}

func New(repo *repository.Repository, attempts AttemptCounter) *Service {
	return &Service{repo: repo, attempts: attempts}
}

// Defaults returns the factory preference set for a tenant.
func Defaults(tenantID uuid.UUID) repository.Preferences {
	return repository.Preferences{
		TenantID:          tenantID,
		DefaultChannel:    DefaultChannel,
		ChannelTemplates:  map[string]string{},
		WorkingHoursStart: DefaultWorkingHoursStart,
		WorkingHoursEnd:   DefaultWorkingHoursEnd,
		MaxDailyOutreach:  DefaultMaxDailyOutreach,
	}
}

// Resolve returns the tenant's preferences, falling back to defaults when no
// row exists. Never errors on absence.
func (s *Service) Resolve(ctx context.Context, tenantID uuid.UUID) (repository.Preferences, error) {
	prefs, err := s.repo.Get(ctx, tenantID)
	if err == repository.ErrNotFound {
		return Defaults(tenantID), nil
	}
	if err != nil {
		return repository.Preferences{}, apperr.Wrap(apperr.KindInternal, "resolve preferences", err)
	}
	return prefs, nil
}

// Update validates and replaces the tenant's preference row.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, req transport.UpdatePreferencesRequest) (repository.Preferences, error) {
	channel, err := domain.ParseChannel(req.DefaultChannel)
	if err != nil {
		return repository.Preferences{}, apperr.Validation(err.Error())
	}

	if _, err := parseClock(req.WorkingHoursStart); err != nil {
		return repository.Preferences{}, apperr.Validation("workingHoursStart: " + err.Error())
	}
	if _, err := parseClock(req.WorkingHoursEnd); err != nil {
		return repository.Preferences{}, apperr.Validation("workingHoursEnd: " + err.Error())
	}
	if req.MaxDailyOutreach < 1 {
		return repository.Preferences{}, apperr.Validation("maxDailyOutreach must be at least 1")
	}

	templates := map[string]string{}
	for rawChannel, templateID := range req.ChannelTemplates {
		if _, err := domain.ParseChannel(rawChannel); err != nil {
			return repository.Preferences{}, apperr.Validation(err.Error())
		}
		templates[rawChannel] = templateID
	}

	if req.ScoringWeights != nil {
		weights := weightsFromMap(req.ScoringWeights)
		if !weights.Valid() {
			return repository.Preferences{}, apperr.Validation("scoring weights must be non-negative with a positive sum")
		}
	}

	prefs, err := s.repo.Upsert(ctx, repository.Preferences{
		TenantID:          tenantID,
		DefaultChannel:    channel,
		ChannelTemplates:  templates,
		WorkingHoursStart: req.WorkingHoursStart,
		WorkingHoursEnd:   req.WorkingHoursEnd,
		MaxDailyOutreach:  req.MaxDailyOutreach,
		ScoringWeights:    req.ScoringWeights,
	})
	if err != nil {
		return repository.Preferences{}, apperr.Wrap(apperr.KindInternal, "update preferences", err)
	}
	return prefs, nil
}

// TemplateFor returns the template id configured for the channel, if any.
func TemplateFor(prefs repository.Preferences, channel domain.Channel) (string, bool) {
	templateID, ok := prefs.ChannelTemplates[string(channel)]
	return templateID, ok && templateID != ""
}

// IsWithinWindow reports whether t falls inside the tenant's working hours.
// Overnight windows (start after end, e.g. 20:00-04:00) wrap midnight.
// A start equal to end means the window is always open. Pure, advisory.
func IsWithinWindow(prefs repository.Preferences, t time.Time) bool {
	start, err := parseClock(prefs.WorkingHoursStart)
	if err != nil {
		return true
	}
	end, err := parseClock(prefs.WorkingHoursEnd)
	if err != nil {
		return true
	}

	minute := t.Hour()*60 + t.Minute()
	switch {
	case start == end:
		return true
	case start < end:
		return minute >= start && minute < end
	default: // overnight
		return minute >= start || minute < end
	}
}

// UnderDailyCap reports whether the tenant can still dispatch outreach today.
// Read-then-act: concurrent sends may race past the cap by a small margin;
// the cap is a soft limit.
func (s *Service) UnderDailyCap(ctx context.Context, prefs repository.Preferences, now time.Time) (bool, int, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := s.attempts.CountDispatchedBetween(ctx, prefs.TenantID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return false, 0, apperr.Wrap(apperr.KindInternal, "count daily outreach", err)
	}
	return count < prefs.MaxDailyOutreach, count, nil
}

// ScoringWeights resolves the tenant's scoring weights, defaulting when the
// tenant has not tuned them.
func (s *Service) ScoringWeights(ctx context.Context, tenantID uuid.UUID) (engine.Weights, error) {
	prefs, err := s.Resolve(ctx, tenantID)
	if err != nil {
		return engine.Weights{}, err
	}
	if prefs.ScoringWeights == nil {
		return engine.DefaultWeights(), nil
	}

	weights := weightsFromMap(prefs.ScoringWeights)
	if !weights.Valid() {
		return engine.DefaultWeights(), nil
	}
	return weights, nil
}

func weightsFromMap(raw map[string]float64) engine.Weights {
	return engine.Weights{
		ContactCompleteness: raw[engine.FactorContactCompleteness],
		Recency:             raw[engine.FactorRecency],
		Volume:              raw[engine.FactorVolume],
		ResponseRate:        raw[engine.FactorResponseRate],
	}
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%q is not HH:MM", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%q is not HH:MM", value)
	}
	return hour*60 + minute, nil
}
