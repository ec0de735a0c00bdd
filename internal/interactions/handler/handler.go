package handler

import (
	"net/http"
	"strconv"

	"estate_crm_backend/internal/interactions/service"
	"estate_crm_backend/internal/interactions/transport"
	"estate_crm_backend/platform/httpkit"
	"estate_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxRecordingSize = 50 << 20 // 50 MiB

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

// RegisterLeadRoutes mounts the per-lead interaction routes on the leads group.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/interactions", h.ListByLead)
	rg.POST("/:id/interactions", h.Record)
}

// RegisterRoutes mounts the interaction-scoped routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/:id/outcome", h.UpdateOutcome)
	rg.POST("/:id/recording", h.UploadRecording)
	rg.GET("/:id/recording", h.RecordingURL)
}

func (h *Handler) Record(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RecordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	item, err := h.svc.Record(c.Request.Context(), identity.TenantID(), leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.FromInteraction(item))
}

func (h *Handler) ListByLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	items, err := h.svc.ListByLead(c.Request.Context(), leadID, identity.TenantID(),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromInteractions(items))
}

func (h *Handler) UpdateOutcome(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.GetIdentity(c)
	item, err := h.svc.UpdateOutcome(c.Request.Context(), id, identity.TenantID(), req.Outcome)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromInteraction(item))
}

func (h *Handler) UploadRecording(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	fileHeader, err := c.FormFile("recording")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "recording file is required", nil)
		return
	}
	if fileHeader.Size > maxRecordingSize {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "recording too large", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	identity := httpkit.GetIdentity(c)
	item, err := h.svc.AttachRecording(c.Request.Context(), id, identity.TenantID(),
		fileHeader.Filename, contentType, file, fileHeader.Size)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromInteraction(item))
}

func (h *Handler) RecordingURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	url, err := h.svc.RecordingURL(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, url)
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
