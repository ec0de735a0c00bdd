// Package interactions provides the interaction log bounded context module.
package interactions

import (
	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/interactions/handler"
	"estate_crm_backend/internal/interactions/repository"
	"estate_crm_backend/internal/interactions/service"
	"estate_crm_backend/platform/db"
	"estate_crm_backend/platform/validator"
)

// Module is the interaction log bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the interactions module.
// recordings may be nil when MinIO is not configured; recording endpoints
// then return an internal error.
func NewModule(pool db.Querier, eventBus events.Bus, val *validator.Validator, recordings service.RecordingStore, leads service.LeadToucher) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, recordings, leads)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "interactions"
}

// Service returns the interaction log service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the interaction repository for the scoring read path.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts interaction routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterLeadRoutes(leadsGroup)

	interactionsGroup := ctx.Protected.Group("/interactions")
	m.handler.RegisterRoutes(interactionsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
