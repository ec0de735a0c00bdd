package handler

import (
	"net/http"
	"time"

	"estate_crm_backend/internal/scoring/repository"
	"estate_crm_backend/internal/scoring/service"
	"estate_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
}

const msgInvalidRequest = "invalid request"

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterLeadRoutes mounts score routes under the leads group.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/score", h.GetScore)
	rg.POST("/:id/score/recalculate", h.Recalculate)
}

type scoreResponse struct {
	LeadID      uuid.UUID          `json:"leadId"`
	Score       float64            `json:"score"`
	Factors     map[string]float64 `json:"factors"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

func fromSnapshot(snapshot repository.Snapshot) scoreResponse {
	return scoreResponse{
		LeadID:      snapshot.LeadID,
		Score:       snapshot.Score,
		Factors:     snapshot.Factors,
		LastUpdated: snapshot.LastUpdated,
	}
}

func (h *Handler) GetScore(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	snapshot, err := h.svc.Snapshot(c.Request.Context(), leadID, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, fromSnapshot(snapshot))
}

func (h *Handler) Recalculate(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.GetIdentity(c)
	snapshot, err := h.svc.Recalculate(c.Request.Context(), leadID, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, fromSnapshot(snapshot))
}
