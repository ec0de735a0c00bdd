// Package service implements property listing management and the ingestion
// path for scraped listings.
package service

import (
	"context"
	"strings"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/internal/projects/repository"
	"estate_crm_backend/internal/projects/transport"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Listing is one normalized listing coming out of a scraping connector.
type Listing struct {
	ExternalRef   string
	Title         string
	AddressStreet *string
	AddressCity   *string
	AddressZip    *string
	PriceCents    *int64
	AreaSqm       *float64
	Rooms         *int
	ListingStatus string
	ExternalURL   *string
}

// ListingSource is a pluggable connector to an external listing portal.
// Implementations live outside this module; the scheduler or an operator
// drives them and hands the results to Import.
type ListingSource interface {
	// Name identifies the portal; it becomes the source_name of every row
	// the connector produces.
	Name() string
	// Fetch returns the current listings for the tenant.
	Fetch(ctx context.Context, tenantID uuid.UUID) ([]Listing, error)
}

// ImportSummary reports what an import batch did.
type ImportSummary struct {
	Imported int
	Updated  int
	Skipped  int
}

type Service struct {
	repo *repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateProjectRequest) (repository.Project, error) {
	status := domain.ListingStatusDraft
	if req.ListingStatus != "" {
		parsed, err := domain.ParseListingStatus(req.ListingStatus)
		if err != nil {
			return repository.Project{}, apperr.Validation(err.Error())
		}
		status = parsed
	}

	project, err := s.repo.Create(ctx, repository.CreateProjectParams{
		TenantID:      tenantID,
		Title:         req.Title,
		AddressStreet: req.AddressStreet,
		AddressCity:   req.AddressCity,
		AddressZip:    req.AddressZip,
		PriceCents:    req.PriceCents,
		AreaSqm:       req.AreaSqm,
		Rooms:         req.Rooms,
		ListingStatus: status,
		ExternalURL:   req.ExternalURL,
	})
	if err != nil {
		return repository.Project{}, apperr.Wrap(apperr.KindInternal, "create project", err)
	}
	return project, nil
}

func (s *Service) GetByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Project, error) {
	project, err := s.repo.GetByID(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return repository.Project{}, apperr.NotFound("project not found")
	}
	if err != nil {
		return repository.Project{}, apperr.Wrap(apperr.KindInternal, "get project", err)
	}
	return project, nil
}

// ListFilters carries the optional list query filters after parsing.
type ListFilters struct {
	Status string
	Source string
	Limit  int
	Offset int
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filters ListFilters) ([]repository.Project, error) {
	params := repository.ListParams{
		TenantID: tenantID,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}

	if filters.Status != "" {
		status, err := domain.ParseListingStatus(filters.Status)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		params.Status = &status
	}
	if filters.Source != "" {
		params.Source = &filters.Source
	}

	projects, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list projects", err)
	}
	return projects, nil
}

func (s *Service) Update(ctx context.Context, id, tenantID uuid.UUID, req transport.UpdateProjectRequest) (repository.Project, error) {
	project, err := s.repo.Update(ctx, id, tenantID, repository.UpdateProjectParams{
		Title:         req.Title,
		AddressStreet: req.AddressStreet,
		AddressCity:   req.AddressCity,
		AddressZip:    req.AddressZip,
		PriceCents:    req.PriceCents,
		AreaSqm:       req.AreaSqm,
		Rooms:         req.Rooms,
		ExternalURL:   req.ExternalURL,
	})
	if err == repository.ErrNotFound {
		return repository.Project{}, apperr.NotFound("project not found")
	}
	if err != nil {
		return repository.Project{}, apperr.Wrap(apperr.KindInternal, "update project", err)
	}
	return project, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, tenantID uuid.UUID, rawStatus string) (repository.Project, error) {
	status, err := domain.ParseListingStatus(rawStatus)
	if err != nil {
		return repository.Project{}, apperr.Validation(err.Error())
	}

	project, err := s.repo.UpdateStatus(ctx, id, tenantID, status)
	if err == repository.ErrNotFound {
		return repository.Project{}, apperr.NotFound("project not found")
	}
	if err != nil {
		return repository.Project{}, apperr.Wrap(apperr.KindInternal, "update project status", err)
	}
	return project, nil
}

func (s *Service) Delete(ctx context.Context, id, tenantID uuid.UUID) error {
	err := s.repo.Delete(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return apperr.NotFound("project not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete project", err)
	}
	return nil
}

// Import upserts a batch of scraped listings keyed by (source, external ref).
// Listings that fail normalization are skipped and counted; a storage error
// aborts the batch.
func (s *Service) Import(ctx context.Context, tenantID uuid.UUID, sourceName string, listings []Listing) (ImportSummary, error) {
	sourceName = strings.TrimSpace(sourceName)
	if sourceName == "" {
		return ImportSummary{}, apperr.Validation("source name is required")
	}

	var summary ImportSummary
	for _, listing := range listings {
		params, err := normalizeListing(tenantID, sourceName, listing)
		if err != nil {
			s.log.Warn("skipping listing in import batch",
				"source", sourceName, "external_ref", listing.ExternalRef, "error", err)
			summary.Skipped++
			continue
		}

		project, inserted, err := s.repo.UpsertExternal(ctx, params)
		if err != nil {
			return summary, apperr.Wrap(apperr.KindInternal, "upsert listing", err)
		}
		if inserted {
			summary.Imported++
		} else {
			summary.Updated++
		}

		s.bus.Publish(ctx, events.ListingImported{
			BaseEvent:   events.NewBaseEvent(),
			ProjectID:   project.ID,
			TenantID:    tenantID,
			ExternalRef: params.ExternalRef,
			SourceName:  sourceName,
		})
	}
	return summary, nil
}

// ImportFrom pulls the connector's current listings and imports them.
func (s *Service) ImportFrom(ctx context.Context, tenantID uuid.UUID, src ListingSource) (ImportSummary, error) {
	listings, err := src.Fetch(ctx, tenantID)
	if err != nil {
		return ImportSummary{}, apperr.Wrap(apperr.KindProviderFailure, "fetch listings from "+src.Name(), err)
	}
	return s.Import(ctx, tenantID, src.Name(), listings)
}

func normalizeListing(tenantID uuid.UUID, sourceName string, listing Listing) (repository.UpsertExternalParams, error) {
	ref := strings.TrimSpace(listing.ExternalRef)
	if ref == "" {
		return repository.UpsertExternalParams{}, apperr.Validation("listing has no external reference")
	}
	title := strings.TrimSpace(listing.Title)
	if title == "" {
		return repository.UpsertExternalParams{}, apperr.Validation("listing has no title")
	}
	if listing.PriceCents != nil && *listing.PriceCents < 0 {
		return repository.UpsertExternalParams{}, apperr.Validation("listing price is negative")
	}

	// Scraped listings are live on their portal unless the source says otherwise.
	status := domain.ListingStatusActive
	if listing.ListingStatus != "" {
		parsed, err := domain.ParseListingStatus(listing.ListingStatus)
		if err != nil {
			return repository.UpsertExternalParams{}, apperr.Validation(err.Error())
		}
		status = parsed
	}

	return repository.UpsertExternalParams{
		TenantID:      tenantID,
		Title:         title,
		AddressStreet: listing.AddressStreet,
		AddressCity:   listing.AddressCity,
		AddressZip:    listing.AddressZip,
		PriceCents:    listing.PriceCents,
		AreaSqm:       listing.AreaSqm,
		Rooms:         listing.Rooms,
		ListingStatus: status,
		SourceName:    sourceName,
		ExternalRef:   ref,
		ExternalURL:   listing.ExternalURL,
	}, nil
}
