// Package analytics provides the read-only reporting module.
package analytics

import (
	"estate_crm_backend/internal/analytics/handler"
	"estate_crm_backend/internal/analytics/repository"
	"estate_crm_backend/internal/analytics/service"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/platform/db"
)

// Module is the analytics bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the analytics module.
func NewModule(pool db.Querier) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{handler: handler.New(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "analytics"
}

// RegisterRoutes mounts analytics routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/analytics")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
