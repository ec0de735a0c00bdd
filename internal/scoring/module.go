// Package scoring provides the lead scoring bounded context module.
// Scores refresh automatically on interaction and lead events and can be
// recalculated on demand over HTTP.
package scoring

import (
	"context"

	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/scoring/handler"
	"estate_crm_backend/internal/scoring/repository"
	"estate_crm_backend/internal/scoring/service"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/db"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Module is the scoring bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the scoring module and subscribes it to the events that
// invalidate scores.
func NewModule(pool db.Querier, eventBus events.Bus, leads service.LeadStore, history service.InteractionHistory, weights service.WeightSource, cfg config.ScoringConfig, log *logger.Logger) *Module {
	snapshots := repository.New(pool)
	svc := service.New(leads, history, weights, snapshots, cfg, log)

	recalc := func(ctx context.Context, leadID, tenantID uuid.UUID) {
		if _, err := svc.Recalculate(ctx, leadID, tenantID); err != nil {
			log.Error("score recalculation failed", "error", err, "leadId", leadID)
		}
	}

	eventBus.Subscribe(events.InteractionRecorded{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.InteractionRecorded); ok {
			recalc(ctx, e.LeadID, e.TenantID)
		}
		return nil
	}))

	eventBus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.LeadCreated); ok {
			recalc(ctx, e.LeadID, e.TenantID)
		}
		return nil
	}))

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scoring"
}

// Service returns the scoring service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts score routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterLeadRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
