package repository

import (
	"context"
	"errors"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("project not found")

type Repository struct {
	pool db.Querier
}

func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Project is a property listing, created by agents or ingested from an
// external listing source. Externally sourced rows carry source_name and
// external_ref so re-imports update in place instead of duplicating.
type Project struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Title         string
	AddressStreet *string
	AddressCity   *string
	AddressZip    *string
	PriceCents    *int64
	AreaSqm       *float64
	Rooms         *int
	ListingStatus domain.ListingStatus
	SourceName    *string
	ExternalRef   *string
	ExternalURL   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateProjectParams struct {
	TenantID      uuid.UUID
	Title         string
	AddressStreet *string
	AddressCity   *string
	AddressZip    *string
	PriceCents    *int64
	AreaSqm       *float64
	Rooms         *int
	ListingStatus domain.ListingStatus
	ExternalURL   *string
}

const projectColumns = `id, tenant_id, title, address_street, address_city, address_zip,
			price_cents, area_sqm, rooms, listing_status, source_name, external_ref, external_url,
			created_at, updated_at`

func (r *Repository) Create(ctx context.Context, params CreateProjectParams) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO projects (tenant_id, title, address_street, address_city, address_zip,
			price_cents, area_sqm, rooms, listing_status, external_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+projectColumns,
		params.TenantID, params.Title, params.AddressStreet, params.AddressCity, params.AddressZip,
		params.PriceCents, params.AreaSqm, params.Rooms, string(params.ListingStatus), params.ExternalURL,
	)
	return scanProject(row)
}

func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	project, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return project, err
}

// ListParams filters and pages the tenant's listings.
type ListParams struct {
	TenantID uuid.UUID
	Status   *domain.ListingStatus
	Source   *string
	Limit    int
	Offset   int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Project, error) {
	if params.Limit < 1 || params.Limit > 200 {
		params.Limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE tenant_id = $1
			AND ($2::text IS NULL OR listing_status = $2)
			AND ($3::text IS NULL OR source_name = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, params.TenantID, statusArg(params.Status), params.Source, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

type UpdateProjectParams struct {
	Title         *string
	AddressStreet *string
	AddressCity   *string
	AddressZip    *string
	PriceCents    *int64
	AreaSqm       *float64
	Rooms         *int
	ExternalURL   *string
}

func (r *Repository) Update(ctx context.Context, id, tenantID uuid.UUID, params UpdateProjectParams) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE projects SET
			title = COALESCE($3, title),
			address_street = COALESCE($4, address_street),
			address_city = COALESCE($5, address_city),
			address_zip = COALESCE($6, address_zip),
			price_cents = COALESCE($7, price_cents),
			area_sqm = COALESCE($8, area_sqm),
			rooms = COALESCE($9, rooms),
			external_url = COALESCE($10, external_url),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+projectColumns,
		id, tenantID, params.Title, params.AddressStreet, params.AddressCity, params.AddressZip,
		params.PriceCents, params.AreaSqm, params.Rooms, params.ExternalURL,
	)

	project, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return project, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id, tenantID uuid.UUID, status domain.ListingStatus) (Project, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE projects SET listing_status = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+projectColumns,
		id, tenantID, string(status),
	)

	project, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return project, err
}

// UpsertExternalParams is one scraped listing keyed by its source reference.
type UpsertExternalParams struct {
	TenantID      uuid.UUID
	Title         string
	AddressStreet *string
	AddressCity   *string
	AddressZip    *string
	PriceCents    *int64
	AreaSqm       *float64
	Rooms         *int
	ListingStatus domain.ListingStatus
	SourceName    string
	ExternalRef   string
	ExternalURL   *string
}

// UpsertExternal inserts a scraped listing or refreshes the existing row for
// the same (tenant, source, external_ref). Manually edited fields are
// overwritten; external sources own their rows. The second return reports
// whether the row was newly inserted.
func (r *Repository) UpsertExternal(ctx context.Context, params UpsertExternalParams) (Project, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO projects (tenant_id, title, address_street, address_city, address_zip,
			price_cents, area_sqm, rooms, listing_status, source_name, external_ref, external_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, source_name, external_ref) WHERE external_ref IS NOT NULL
		DO UPDATE SET
			title = EXCLUDED.title,
			address_street = EXCLUDED.address_street,
			address_city = EXCLUDED.address_city,
			address_zip = EXCLUDED.address_zip,
			price_cents = EXCLUDED.price_cents,
			area_sqm = EXCLUDED.area_sqm,
			rooms = EXCLUDED.rooms,
			listing_status = EXCLUDED.listing_status,
			external_url = EXCLUDED.external_url,
			updated_at = now()
		RETURNING `+projectColumns+`, (xmax = 0)`,
		params.TenantID, params.Title, params.AddressStreet, params.AddressCity, params.AddressZip,
		params.PriceCents, params.AreaSqm, params.Rooms, string(params.ListingStatus),
		params.SourceName, params.ExternalRef, params.ExternalURL,
	)

	var project Project
	var status string
	var inserted bool
	err := row.Scan(
		&project.ID, &project.TenantID, &project.Title, &project.AddressStreet, &project.AddressCity,
		&project.AddressZip, &project.PriceCents, &project.AreaSqm, &project.Rooms, &status,
		&project.SourceName, &project.ExternalRef, &project.ExternalURL,
		&project.CreatedAt, &project.UpdatedAt, &inserted,
	)
	if err != nil {
		return Project{}, false, err
	}
	project.ListingStatus = domain.ListingStatus(status)
	return project, inserted, nil
}

func (r *Repository) Delete(ctx context.Context, id, tenantID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM projects WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (Project, error) {
	var project Project
	var status string

	err := row.Scan(
		&project.ID, &project.TenantID, &project.Title, &project.AddressStreet, &project.AddressCity,
		&project.AddressZip, &project.PriceCents, &project.AreaSqm, &project.Rooms, &status,
		&project.SourceName, &project.ExternalRef, &project.ExternalURL,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return Project{}, err
	}

	project.ListingStatus = domain.ListingStatus(status)
	return project, nil
}

func statusArg(status *domain.ListingStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}
