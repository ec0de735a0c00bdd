package service

import (
	"testing"

	"estate_crm_backend/internal/domain"

	"github.com/google/uuid"
)

func TestNormalizeListing(t *testing.T) {
	tenantID := uuid.New()
	price := int64(35000000)

	tests := []struct {
		name    string
		listing Listing
		wantErr bool
	}{
		{
			name:    "valid listing",
			listing: Listing{ExternalRef: "ref-1", Title: "Canal-side apartment", PriceCents: &price},
		},
		{
			name:    "missing external ref",
			listing: Listing{Title: "Canal-side apartment"},
			wantErr: true,
		},
		{
			name:    "whitespace external ref",
			listing: Listing{ExternalRef: "   ", Title: "Canal-side apartment"},
			wantErr: true,
		},
		{
			name:    "missing title",
			listing: Listing{ExternalRef: "ref-1"},
			wantErr: true,
		},
		{
			name:    "unknown listing status",
			listing: Listing{ExternalRef: "ref-1", Title: "Apartment", ListingStatus: "pending"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := normalizeListing(tenantID, "funda", tt.listing)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params.SourceName != "funda" {
				t.Errorf("SourceName = %q", params.SourceName)
			}
			if params.TenantID != tenantID {
				t.Errorf("TenantID = %v", params.TenantID)
			}
		})
	}
}

func TestNormalizeListingDefaultsToActive(t *testing.T) {
	params, err := normalizeListing(uuid.New(), "funda", Listing{ExternalRef: "ref-1", Title: "Apartment"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.ListingStatus != domain.ListingStatusActive {
		t.Errorf("ListingStatus = %q, want active", params.ListingStatus)
	}
}

func TestNormalizeListingNegativePrice(t *testing.T) {
	price := int64(-1)
	_, err := normalizeListing(uuid.New(), "funda", Listing{ExternalRef: "ref-1", Title: "Apartment", PriceCents: &price})
	if err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestNormalizeListingTrimsFields(t *testing.T) {
	params, err := normalizeListing(uuid.New(), "funda", Listing{ExternalRef: "  ref-1  ", Title: "  Apartment  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.ExternalRef != "ref-1" {
		t.Errorf("ExternalRef = %q", params.ExternalRef)
	}
	if params.Title != "Apartment" {
		t.Errorf("Title = %q", params.Title)
	}
}
