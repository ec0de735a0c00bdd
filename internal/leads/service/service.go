// Package service implements lead management use cases: intake,
// funnel progression, and agent assignment.
package service

import (
	"context"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/internal/leads/transport"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/phone"

	"github.com/google/uuid"
)

type Service struct {
	repo *repository.Repository
	bus  events.Bus
}

func New(repo *repository.Repository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

// Create registers a new lead for the tenant. Phone numbers are normalized
// to E.164 before storage so duplicate detection and outreach dialing work
// off a canonical form.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (repository.Lead, error) {
	source, err := domain.ParseLeadSource(req.Source)
	if err != nil {
		return repository.Lead{}, apperr.Validation(err.Error())
	}

	if req.Email == nil && req.Phone == nil {
		return repository.Lead{}, apperr.Validation("lead needs at least one contact method")
	}

	normalizedPhone := req.Phone
	if req.Phone != nil {
		p := phone.NormalizeE164(*req.Phone)
		normalizedPhone = &p
	}

	var agentID *uuid.UUID
	if req.AssignedAgentID != nil {
		parsed, err := uuid.Parse(*req.AssignedAgentID)
		if err != nil {
			return repository.Lead{}, apperr.Validation("invalid agent id")
		}
		agentID = &parsed
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		TenantID:        tenantID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           normalizedPhone,
		Source:          source,
		AssignedAgentID: agentID,
	})
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "create lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  tenantID,
		Source:    lead.Source,
		Name:      lead.FirstName + " " + lead.LastName,
		Email:     deref(lead.Email),
		Phone:     deref(lead.Phone),
	})

	return lead, nil
}

func (s *Service) GetByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "get lead", err)
	}
	return lead, nil
}

// ListFilters carries the optional list query filters after parsing.
type ListFilters struct {
	Status string
	Source string
	Limit  int
	Offset int
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filters ListFilters) ([]repository.Lead, error) {
	params := repository.ListParams{
		TenantID: tenantID,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}

	if filters.Status != "" {
		status, err := domain.ParseLeadStatus(filters.Status)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		params.Status = &status
	}
	if filters.Source != "" {
		source, err := domain.ParseLeadSource(filters.Source)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		params.Source = &source
	}

	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list leads", err)
	}
	return leads, nil
}

func (s *Service) Update(ctx context.Context, id, tenantID uuid.UUID, req transport.UpdateLeadRequest) (repository.Lead, error) {
	params := repository.UpdateLeadParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}

	if req.Phone != nil {
		p := phone.NormalizeE164(*req.Phone)
		params.Phone = &p
	}
	if req.Source != nil {
		source, err := domain.ParseLeadSource(*req.Source)
		if err != nil {
			return repository.Lead{}, apperr.Validation(err.Error())
		}
		params.Source = &source
	}

	lead, err := s.repo.Update(ctx, id, tenantID, params)
	if err == repository.ErrNotFound {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "update lead", err)
	}
	return lead, nil
}

// UpdateStatus moves the lead to the given funnel status and publishes the
// transition. Any status-to-status move is allowed; the funnel is advisory,
// not a state machine.
func (s *Service) UpdateStatus(ctx context.Context, id, tenantID, actorID uuid.UUID, rawStatus string) (repository.Lead, error) {
	status, err := domain.ParseLeadStatus(rawStatus)
	if err != nil {
		return repository.Lead{}, apperr.Validation(err.Error())
	}

	previous, err := s.repo.UpdateStatus(ctx, id, tenantID, status)
	if err == repository.ErrNotFound {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "update lead status", err)
	}

	if previous != status {
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			TenantID:  tenantID,
			OldStatus: previous,
			NewStatus: status,
			ChangedBy: actorID,
		})
	}

	return s.GetByID(ctx, id, tenantID)
}

// Assign hands the lead to an agent, or back to the pool when agentID is nil.
func (s *Service) Assign(ctx context.Context, id, tenantID, actorID uuid.UUID, agentID *uuid.UUID) (repository.Lead, error) {
	previous, err := s.repo.Assign(ctx, id, tenantID, agentID)
	if err == repository.ErrNotFound {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "assign lead", err)
	}

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        id,
		TenantID:      tenantID,
		PreviousAgent: previous,
		NewAgent:      agentID,
		AssignedByID:  actorID,
	})

	return s.GetByID(ctx, id, tenantID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
