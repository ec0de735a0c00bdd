// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID         `json:"leadId"`
	TenantID uuid.UUID         `json:"tenantId"`
	Source   domain.LeadSource `json:"source"`
	Name     string            `json:"name"`
	Email    string            `json:"email,omitempty"`
	Phone    string            `json:"phone,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published when a lead moves through the funnel.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID         `json:"leadId"`
	TenantID  uuid.UUID         `json:"tenantId"`
	OldStatus domain.LeadStatus `json:"oldStatus"`
	NewStatus domain.LeadStatus `json:"newStatus"`
	ChangedBy uuid.UUID         `json:"changedBy"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadAssigned is published when a lead is assigned to an agent.
type LeadAssigned struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	TenantID      uuid.UUID  `json:"tenantId"`
	PreviousAgent *uuid.UUID `json:"previousAgent,omitempty"`
	NewAgent      *uuid.UUID `json:"newAgent,omitempty"`
	AssignedByID  uuid.UUID  `json:"assignedById"`
}

func (e LeadAssigned) EventName() string { return "leads.assigned" }

// =============================================================================
// Interaction Domain Events
// =============================================================================

// InteractionRecorded is published whenever a contact attempt or response
// lands in the interaction log. The scoring engine listens to this to keep
// lead scores current.
type InteractionRecorded struct {
	BaseEvent
	InteractionID uuid.UUID                 `json:"interactionId"`
	LeadID        uuid.UUID                 `json:"leadId"`
	TenantID      uuid.UUID                 `json:"tenantId"`
	Channel       domain.Channel            `json:"channel"`
	Outcome       domain.InteractionOutcome `json:"outcome"`
}

func (e InteractionRecorded) EventName() string { return "interactions.recorded" }

// =============================================================================
// Outreach Domain Events
// =============================================================================

// OutreachAttemptTransitioned is published on every attempt state change.
type OutreachAttemptTransitioned struct {
	BaseEvent
	AttemptID uuid.UUID            `json:"attemptId"`
	LeadID    uuid.UUID            `json:"leadId"`
	TenantID  uuid.UUID            `json:"tenantId"`
	Channel   domain.Channel       `json:"channel"`
	OldStatus domain.AttemptStatus `json:"oldStatus"`
	NewStatus domain.AttemptStatus `json:"newStatus"`
}

func (e OutreachAttemptTransitioned) EventName() string { return "outreach.attempt.transitioned" }

// =============================================================================
// Projects Domain Events
// =============================================================================

// ListingImported is published when a scraped listing is ingested or refreshed.
type ListingImported struct {
	BaseEvent
	ProjectID   uuid.UUID `json:"projectId"`
	TenantID    uuid.UUID `json:"tenantId"`
	ExternalRef string    `json:"externalRef"`
	SourceName  string    `json:"sourceName"`
}

func (e ListingImported) EventName() string { return "projects.listing.imported" }
