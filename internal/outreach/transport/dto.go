// Package transport defines the wire shapes for outreach dispatch.
package transport

import (
	"time"

	"estate_crm_backend/internal/outreach/repository"

	"github.com/google/uuid"
)

type SendRequest struct {
	LeadID     uuid.UUID `json:"leadId" validate:"required"`
	Channel    string    `json:"channel,omitempty"`
	Message    string    `json:"message" validate:"required,max=10000"`
	TemplateID *string   `json:"templateId,omitempty"`
}

type ScheduleRequest struct {
	LeadID      uuid.UUID `json:"leadId" validate:"required"`
	Channel     string    `json:"channel,omitempty"`
	Message     string    `json:"message" validate:"required,max=10000"`
	TemplateID  *string   `json:"templateId,omitempty"`
	ScheduledAt string    `json:"scheduledAt" validate:"required"`
}

// DeliveryCallbackRequest is the normalized payload provider webhooks post.
type DeliveryCallbackRequest struct {
	ProviderMessageID string `json:"providerMessageId" validate:"required"`
	Status            string `json:"status" validate:"required,oneof=delivered read failed"`
}

type AttemptResponse struct {
	ID                uuid.UUID  `json:"id"`
	LeadID            uuid.UUID  `json:"leadId"`
	Channel           string     `json:"channel"`
	Message           string     `json:"message"`
	TemplateID        *string    `json:"templateId,omitempty"`
	Status            string     `json:"status"`
	ScheduledAt       *time.Time `json:"scheduledAt,omitempty"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
	ReadAt            *time.Time `json:"readAt,omitempty"`
	RetryCount        int        `json:"retryCount"`
	LastRetryAt       *time.Time `json:"lastRetryAt,omitempty"`
	ErrorMessage      *string    `json:"errorMessage,omitempty"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func FromAttempt(attempt repository.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:                attempt.ID,
		LeadID:            attempt.LeadID,
		Channel:           string(attempt.Channel),
		Message:           attempt.Message,
		TemplateID:        attempt.TemplateID,
		Status:            string(attempt.Status),
		ScheduledAt:       attempt.ScheduledAt,
		SentAt:            attempt.SentAt,
		DeliveredAt:       attempt.DeliveredAt,
		ReadAt:            attempt.ReadAt,
		RetryCount:        attempt.RetryCount,
		LastRetryAt:       attempt.LastRetryAt,
		ErrorMessage:      attempt.ErrorMessage,
		ProviderMessageID: attempt.ProviderMessageID,
		CreatedAt:         attempt.CreatedAt,
	}
}

func FromAttempts(attempts []repository.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, FromAttempt(attempt))
	}
	return out
}
