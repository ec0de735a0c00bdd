package handler

import (
	"net/http"
	"strconv"

	"estate_crm_backend/internal/projects/service"
	"estate_crm_backend/internal/projects/transport"
	"estate_crm_backend/platform/httpkit"
	"estate_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/import", h.Import)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	project, err := h.svc.Create(c.Request.Context(), identity.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.FromProject(project))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	project, err := h.svc.GetByID(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromProject(project))
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.GetIdentity(c)

	filters := service.ListFilters{
		Status: c.Query("status"),
		Source: c.Query("source"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}

	projects, err := h.svc.List(c.Request.Context(), identity.TenantID(), filters)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromProjects(projects))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	project, err := h.svc.Update(c.Request.Context(), id, identity.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromProject(project))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	project, err := h.svc.UpdateStatus(c.Request.Context(), id, identity.TenantID(), req.ListingStatus)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromProject(project))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id, identity.TenantID())) {
		return
	}

	c.Status(http.StatusNoContent)
}

// Import accepts a batch of scraped listings pushed by the scraping
// subsystem and upserts them by external reference.
func (h *Handler) Import(c *gin.Context) {
	var req transport.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	listings := make([]service.Listing, 0, len(req.Listings))
	for _, item := range req.Listings {
		listings = append(listings, service.Listing{
			ExternalRef:   item.ExternalRef,
			Title:         item.Title,
			AddressStreet: item.AddressStreet,
			AddressCity:   item.AddressCity,
			AddressZip:    item.AddressZip,
			PriceCents:    item.PriceCents,
			AreaSqm:       item.AreaSqm,
			Rooms:         item.Rooms,
			ListingStatus: item.ListingStatus,
			ExternalURL:   item.ExternalURL,
		})
	}

	identity := httpkit.GetIdentity(c)
	summary, err := h.svc.Import(c.Request.Context(), identity.TenantID(), req.SourceName, listings)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ImportResponse{
		Imported: summary.Imported,
		Updated:  summary.Updated,
		Skipped:  summary.Skipped,
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
