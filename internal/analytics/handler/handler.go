package handler

import (
	"net/http"
	"time"

	"estate_crm_backend/internal/analytics/repository"
	"estate_crm_backend/internal/analytics/service"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// defaultWindowDays is the report window when from/to are not given.
const defaultWindowDays = 30

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/report", h.Report)
}

func (h *Handler) Report(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	report, err := h.svc.Build(c.Request.Context(), identity.TenantID(), window)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, report)
}

func parseWindow(c *gin.Context) (repository.Window, error) {
	now := time.Now().UTC()
	window := repository.Window{
		From: now.AddDate(0, 0, -defaultWindowDays),
		To:   now,
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.Window{}, errInvalidTime("from")
		}
		window.From = from.UTC()
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.Window{}, errInvalidTime("to")
		}
		window.To = to.UTC()
	}
	if !window.From.Before(window.To) {
		return repository.Window{}, errWindowOrder
	}
	return window, nil
}

type windowError string

func (e windowError) Error() string { return string(e) }

const errWindowOrder = windowError("from must be before to")

func errInvalidTime(field string) error {
	return windowError(field + " must be RFC3339")
}
