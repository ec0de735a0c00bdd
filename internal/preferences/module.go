// Package preferences provides the tenant communication preference module.
package preferences

import (
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/preferences/handler"
	"estate_crm_backend/internal/preferences/repository"
	"estate_crm_backend/internal/preferences/service"
	"estate_crm_backend/platform/db"
	"estate_crm_backend/platform/httpkit"
	"estate_crm_backend/platform/validator"
)

// RoleAdmin is required to change tenant preferences.
const RoleAdmin = "admin"

// Module is the preferences bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the preferences module.
func NewModule(pool db.Querier, attempts service.AttemptCounter, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, attempts)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "preferences"
}

// Service returns the preference resolver for external use (outreach policy
// checks, scoring weights).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts preference routes on the provided router context.
// Reads are open to any authenticated member; writes are admin only.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/preferences")
	group.GET("", m.handler.Get)
	group.PUT("", httpkit.RequireRole(RoleAdmin), m.handler.Update)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
