// Package transport defines the wire shapes for tenant communication
// preferences.
package transport

import (
	"time"

	"estate_crm_backend/internal/preferences/repository"
)

type UpdatePreferencesRequest struct {
	DefaultChannel    string             `json:"defaultChannel" validate:"required"`
	ChannelTemplates  map[string]string  `json:"channelTemplates,omitempty"`
	WorkingHoursStart string             `json:"workingHoursStart" validate:"required"`
	WorkingHoursEnd   string             `json:"workingHoursEnd" validate:"required"`
	MaxDailyOutreach  int                `json:"maxDailyOutreach" validate:"required,min=1"`
	ScoringWeights    map[string]float64 `json:"scoringWeights,omitempty"`
}

type PreferencesResponse struct {
	DefaultChannel    string             `json:"defaultChannel"`
	ChannelTemplates  map[string]string  `json:"channelTemplates"`
	WorkingHoursStart string             `json:"workingHoursStart"`
	WorkingHoursEnd   string             `json:"workingHoursEnd"`
	MaxDailyOutreach  int                `json:"maxDailyOutreach"`
	ScoringWeights    map[string]float64 `json:"scoringWeights,omitempty"`
	UpdatedAt         *time.Time         `json:"updatedAt,omitempty"`
}

func FromPreferences(prefs repository.Preferences) PreferencesResponse {
	resp := PreferencesResponse{
		DefaultChannel:    string(prefs.DefaultChannel),
		ChannelTemplates:  prefs.ChannelTemplates,
		WorkingHoursStart: prefs.WorkingHoursStart,
		WorkingHoursEnd:   prefs.WorkingHoursEnd,
		MaxDailyOutreach:  prefs.MaxDailyOutreach,
		ScoringWeights:    prefs.ScoringWeights,
	}
	if !prefs.UpdatedAt.IsZero() {
		updatedAt := prefs.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}
