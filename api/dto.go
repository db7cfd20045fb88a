/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. License views are
  mostly returned as the engine builds them (ordered nested maps); the
  percentage views are rounded here for display, since the engine itself
  never rounds.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Documents:
    DocumentDTO

  Architectures:
    ArchitectureDTO (request body of PUT is []architecture.Entry)
    ArchitectureRequest (request body of PUT /architectures/{license})

  Samples:
    SampleDTO, LoadSampleRequest

ROUNDING:
  Usage and technology percentages go through shopspring/decimal and are
  rounded half away from zero to DisplayPlaces decimals.

SEE ALSO:
  - handlers.go: Uses these types
  - license/*.go: View result types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/license-engine/license"
	"github.com/warp/license-engine/store/sqlite"
)

// DisplayPlaces is the number of decimals percentages are rounded to.
const DisplayPlaces = 1

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DocumentDTO describes a cached entitlement document.
type DocumentDTO struct {
	ID          string   `json:"id"`
	Accounts    []string `json:"accounts"`
	RecordCount int      `json:"record_count"`
}

// ArchitectureDTO is one row of the architecture table.
type ArchitectureDTO struct {
	License      string `json:"license"`
	Architecture string `json:"architecture"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// ArchitectureRequest classifies the license named in the URL.
type ArchitectureRequest struct {
	Architecture string `json:"architecture"`
}

// SampleDTO describes a built-in demo document.
type SampleDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadSampleRequest is the request to cache a sample document.
type LoadSampleRequest struct {
	SampleID string `json:"sample_id"`
}

// UsageDTO is the usage view with rounded percentages.
type UsageDTO struct {
	DictSize  int                `json:"dict_size"`
	UsageDict *license.UsageTree `json:"usage_dict"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(DisplayPlaces).InexactFloat64()
}

func roundUsage(tree *license.UsageTree) *license.UsageTree {
	return license.MapValues(tree, func(subs *license.OrderedMap[*license.OrderedMap[license.UsageEntry]]) *license.OrderedMap[*license.OrderedMap[license.UsageEntry]] {
		return license.MapValues(subs, func(lics *license.OrderedMap[license.UsageEntry]) *license.OrderedMap[license.UsageEntry] {
			return license.MapValues(lics, func(e license.UsageEntry) license.UsageEntry {
				return license.UsageEntry{Usage: round(e.Usage)}
			})
		})
	})
}

func toUsageDTO(summary license.UsageSummary) UsageDTO {
	return UsageDTO{DictSize: summary.DictSize, UsageDict: roundUsage(summary.UsageDict)}
}

func roundTechnology(tree *license.TechnologyTree) *license.TechnologyTree {
	return license.MapValues(tree, func(categories *license.OrderedMap[license.TechnologyShare]) *license.OrderedMap[license.TechnologyShare] {
		return license.MapValues(categories, func(s license.TechnologyShare) license.TechnologyShare {
			return license.TechnologyShare{InUse: round(s.InUse)}
		})
	})
}

func toArchitectureDTOs(records []sqlite.ArchitectureRecord) []ArchitectureDTO {
	dtos := make([]ArchitectureDTO, 0, len(records))
	for _, r := range records {
		dto := ArchitectureDTO{License: r.License, Architecture: r.Architecture}
		if !r.UpdatedAt.IsZero() {
			dto.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
