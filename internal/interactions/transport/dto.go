// Package transport defines the wire shapes for the interaction log.
package transport

import (
	"time"

	"estate_crm_backend/internal/interactions/repository"

	"github.com/google/uuid"
)

type RecordInteractionRequest struct {
	Channel           string  `json:"channel" validate:"required"`
	Outcome           string  `json:"outcome" validate:"required"`
	StartTime         *string `json:"startTime,omitempty"`
	DurationSeconds   *int    `json:"durationSeconds,omitempty" validate:"omitempty,min=0"`
	ProviderMessageID *string `json:"providerMessageId,omitempty"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

type UpdateOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

type InteractionResponse struct {
	ID                uuid.UUID `json:"id"`
	LeadID            uuid.UUID `json:"leadId"`
	Channel           string    `json:"channel"`
	Outcome           string    `json:"outcome"`
	StartTime         time.Time `json:"startTime"`
	DurationSeconds   *int      `json:"durationSeconds,omitempty"`
	ProviderMessageID *string   `json:"providerMessageId,omitempty"`
	DeliveryStatus    *string   `json:"deliveryStatus,omitempty"`
	HasRecording      bool      `json:"hasRecording"`
	Notes             *string   `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

func FromInteraction(item repository.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:                item.ID,
		LeadID:            item.LeadID,
		Channel:           string(item.Channel),
		Outcome:           string(item.Outcome),
		StartTime:         item.StartTime,
		DurationSeconds:   item.DurationSeconds,
		ProviderMessageID: item.ProviderMessageID,
		DeliveryStatus:    item.DeliveryStatus,
		HasRecording:      item.RecordingKey != nil,
		Notes:             item.Notes,
		CreatedAt:         item.CreatedAt,
	}
}

func FromInteractions(items []repository.Interaction) []InteractionResponse {
	out := make([]InteractionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromInteraction(item))
	}
	return out
}
