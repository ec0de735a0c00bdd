// Package transport defines the wire-level request and response shapes for
// the projects module.
package transport

import (
	"time"

	"estate_crm_backend/internal/projects/repository"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Title         string   `json:"title" validate:"required,max=200"`
	AddressStreet *string  `json:"addressStreet,omitempty" validate:"omitempty,max=200"`
	AddressCity   *string  `json:"addressCity,omitempty" validate:"omitempty,max=100"`
	AddressZip    *string  `json:"addressZip,omitempty" validate:"omitempty,max=16"`
	PriceCents    *int64   `json:"priceCents,omitempty" validate:"omitempty,min=0"`
	AreaSqm       *float64 `json:"areaSqm,omitempty" validate:"omitempty,gt=0"`
	Rooms         *int     `json:"rooms,omitempty" validate:"omitempty,min=0"`
	ListingStatus string   `json:"listingStatus,omitempty"`
	ExternalURL   *string  `json:"externalUrl,omitempty" validate:"omitempty,url"`
}

type UpdateProjectRequest struct {
	Title         *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	AddressStreet *string  `json:"addressStreet,omitempty" validate:"omitempty,max=200"`
	AddressCity   *string  `json:"addressCity,omitempty" validate:"omitempty,max=100"`
	AddressZip    *string  `json:"addressZip,omitempty" validate:"omitempty,max=16"`
	PriceCents    *int64   `json:"priceCents,omitempty" validate:"omitempty,min=0"`
	AreaSqm       *float64 `json:"areaSqm,omitempty" validate:"omitempty,gt=0"`
	Rooms         *int     `json:"rooms,omitempty" validate:"omitempty,min=0"`
	ExternalURL   *string  `json:"externalUrl,omitempty" validate:"omitempty,url"`
}

type UpdateListingStatusRequest struct {
	ListingStatus string `json:"listingStatus" validate:"required"`
}

// ImportListingRequest is one scraped listing in an import batch.
type ImportListingRequest struct {
	ExternalRef   string   `json:"externalRef" validate:"required,max=200"`
	Title         string   `json:"title" validate:"required,max=200"`
	AddressStreet *string  `json:"addressStreet,omitempty" validate:"omitempty,max=200"`
	AddressCity   *string  `json:"addressCity,omitempty" validate:"omitempty,max=100"`
	AddressZip    *string  `json:"addressZip,omitempty" validate:"omitempty,max=16"`
	PriceCents    *int64   `json:"priceCents,omitempty" validate:"omitempty,min=0"`
	AreaSqm       *float64 `json:"areaSqm,omitempty" validate:"omitempty,gt=0"`
	Rooms         *int     `json:"rooms,omitempty" validate:"omitempty,min=0"`
	ListingStatus string   `json:"listingStatus,omitempty"`
	ExternalURL   *string  `json:"externalUrl,omitempty" validate:"omitempty,url"`
}

type ImportRequest struct {
	SourceName string                 `json:"sourceName" validate:"required,max=100"`
	Listings   []ImportListingRequest `json:"listings" validate:"required,min=1,max=500,dive"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

type ProjectResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	AddressStreet *string   `json:"addressStreet,omitempty"`
	AddressCity   *string   `json:"addressCity,omitempty"`
	AddressZip    *string   `json:"addressZip,omitempty"`
	PriceCents    *int64    `json:"priceCents,omitempty"`
	AreaSqm       *float64  `json:"areaSqm,omitempty"`
	Rooms         *int      `json:"rooms,omitempty"`
	ListingStatus string    `json:"listingStatus"`
	SourceName    *string   `json:"sourceName,omitempty"`
	ExternalRef   *string   `json:"externalRef,omitempty"`
	ExternalURL   *string   `json:"externalUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromProject maps a repository project to its response shape.
func FromProject(project repository.Project) ProjectResponse {
	return ProjectResponse{
		ID:            project.ID,
		Title:         project.Title,
		AddressStreet: project.AddressStreet,
		AddressCity:   project.AddressCity,
		AddressZip:    project.AddressZip,
		PriceCents:    project.PriceCents,
		AreaSqm:       project.AreaSqm,
		Rooms:         project.Rooms,
		ListingStatus: string(project.ListingStatus),
		SourceName:    project.SourceName,
		ExternalRef:   project.ExternalRef,
		ExternalURL:   project.ExternalURL,
		CreatedAt:     project.CreatedAt,
		UpdatedAt:     project.UpdatedAt,
	}
}

// FromProjects maps a slice of repository projects.
func FromProjects(projects []repository.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		out = append(out, FromProject(project))
	}
	return out
}
