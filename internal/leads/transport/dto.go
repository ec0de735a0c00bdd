// Package transport defines the wire-level request and response shapes for
// the leads module. Mapping between these DTOs and domain/repository types
// happens here, never in handlers or services.
package transport

import (
	"time"

	"estate_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	FirstName       string  `json:"firstName" validate:"required,max=100"`
	LastName        string  `json:"lastName" validate:"required,max=100"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Source          string  `json:"source,omitempty"`
	AssignedAgentID *string `json:"assignedAgentId,omitempty" validate:"omitempty,uuid"`
}

type UpdateLeadRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Source    *string `json:"source,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type AssignRequest struct {
	AgentID *string `json:"agentId" validate:"omitempty,uuid"`
}

type LeadResponse struct {
	ID              uuid.UUID          `json:"id"`
	FirstName       string             `json:"firstName"`
	LastName        string             `json:"lastName"`
	Email           *string            `json:"email,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Source          string             `json:"source"`
	Status          string             `json:"status"`
	Score           float64            `json:"score"`
	ScoringFactors  map[string]float64 `json:"scoringFactors,omitempty"`
	AssignedAgentID *uuid.UUID         `json:"assignedAgentId,omitempty"`
	LastContactedAt *time.Time         `json:"lastContactedAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// FromLead maps a repository lead to its response shape.
func FromLead(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:              lead.ID,
		FirstName:       lead.FirstName,
		LastName:        lead.LastName,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Source:          string(lead.Source),
		Status:          string(lead.Status),
		Score:           lead.Score,
		ScoringFactors:  lead.ScoringFactors,
		AssignedAgentID: lead.AssignedAgentID,
		LastContactedAt: lead.LastContactedAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

// FromLeads maps a slice of repository leads.
func FromLeads(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, FromLead(lead))
	}
	return out
}
