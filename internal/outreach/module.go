// Package outreach provides the outreach dispatch bounded context module:
// the attempt state machine, channel providers, and the provider delivery
// callback webhook.
package outreach

import (
	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/outreach/handler"
	"estate_crm_backend/internal/outreach/provider"
	"estate_crm_backend/internal/outreach/repository"
	"estate_crm_backend/internal/outreach/service"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/db"
	"estate_crm_backend/platform/logger"
	"estate_crm_backend/platform/validator"
)

// Module is the outreach bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	dispatcher *service.Dispatcher
	repo       *repository.Repository
}

// NewModule creates the outreach module. The provider registry is built from
// configuration; unconfigured channels are simply absent and fail dispatch
// with a provider error.
func NewModule(pool db.Querier, eventBus events.Bus, val *validator.Validator, leads service.LeadContacts, policy service.Policy, interactions service.InteractionLog, enqueuer service.Enqueuer, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var providers []provider.Provider
	if p := provider.NewEmailProvider(cfg); p != nil {
		providers = append(providers, p)
	}
	if p := provider.NewSMSProvider(cfg); p != nil {
		providers = append(providers, p)
	}
	if p := provider.NewWhatsAppProvider(cfg); p != nil {
		providers = append(providers, p)
	}
	if p := provider.NewTelegramProvider(cfg); p != nil {
		providers = append(providers, p)
	}
	if p := provider.NewVoiceProvider(cfg); p != nil {
		providers = append(providers, p)
	}
	registry := provider.NewRegistry(providers...)

	dispatcher := service.NewDispatcher(repo, leads, policy, interactions, registry, enqueuer, eventBus, cfg, log)

	return &Module{
		handler:    handler.New(dispatcher, val),
		dispatcher: dispatcher,
		repo:       repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "outreach"
}

// Dispatcher returns the dispatch service for the scheduler worker.
func (m *Module) Dispatcher() *service.Dispatcher {
	return m.dispatcher
}

// Repository exposes the attempt store for the preference daily-cap check
// and the scheduler sweep.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts outreach routes on the provided router context. The
// delivery callback lives outside the authenticated group, behind the
// webhook rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/outreach")
	m.handler.RegisterRoutes(group)

	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterLeadRoutes(leadsGroup)

	webhooks := ctx.V1.Group("/webhooks/outreach")
	if ctx.WebhookRateLimiter != nil {
		webhooks.Use(ctx.WebhookRateLimiter.RateLimit())
	}
	m.handler.RegisterWebhookRoutes(webhooks)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
