/*
samples.go - Built-in demo entitlement documents

PURPOSE:

	Provides pre-built entitlement documents for demos and manual testing
	without access to the licensing portal. Dates are generated relative to
	the handler clock, so every view has something to show whenever a sample
	is loaded.

AVAILABLE SAMPLES:

	mixed-portfolio: Two accounts, assignedLicenses and plain licenses,
	                 expired, expiring, in shortage and healthy grants
	legacy-dates:    Plain licenses with the legacy "MM/DD/YY HH:MMZ" dates
	empty:           No accounts at all

HOW SAMPLES WORK:
 1. Render the sample template with dates relative to now
 2. Validate it like an upload (parse + normalize)
 3. Cache it under a new document id

USAGE VIA API:

	POST /api/samples/load
	{"sample_id": "mixed-portfolio"}

ADDING NEW SAMPLES:
 1. Add to 'samples' with ID, name, description and template
 2. Use {{day N}} for an ISO date N days from now, {{legacy N}} for the
    legacy short format

SEE ALSO:
  - handlers.go: UploadDocument (same validation and caching path)
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/warp/license-engine/entitlement"
)

// =============================================================================
// SAMPLE DEFINITIONS
// =============================================================================

type sample struct {
	SampleDTO
	template string
}

var samples = []sample{
	{
		SampleDTO: SampleDTO{
			ID:          "mixed-portfolio",
			Name:        "Mixed Portfolio",
			Description: "Two accounts with expired, expiring, over-used and healthy licenses",
		},
		template: mixedPortfolioTemplate,
	},
	{
		SampleDTO: SampleDTO{
			ID:          "legacy-dates",
			Name:        "Legacy Dates",
			Description: "Plain license grants using the legacy MM/DD/YY HH:MMZ date format",
		},
		template: legacyDatesTemplate,
	},
	{
		SampleDTO: SampleDTO{
			ID:          "empty",
			Name:        "Empty",
			Description: "A document without accounts",
		},
		template: `[]`,
	},
}

// ListSamples returns available samples.
// GET /api/samples
func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	dtos := make([]SampleDTO, 0, len(samples))
	for _, s := range samples {
		dtos = append(dtos, s.SampleDTO)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadSample renders a sample and caches it like an uploaded document.
// POST /api/samples/load
func (h *Handler) LoadSample(w http.ResponseWriter, r *http.Request) {
	var req LoadSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	raw, err := RenderSample(req.SampleID, h.clock())
	if err != nil {
		writeErrorCode(w, http.StatusNotFound, "Unknown sample", "unknown_sample", err)
		return
	}

	h.storeDocument(w, r, raw)
}

// RenderSample returns the sample document id with dates relative to now.
func RenderSample(id string, now time.Time) ([]byte, error) {
	for _, s := range samples {
		if s.ID != id {
			continue
		}
		tmpl, err := template.New(s.ID).Funcs(template.FuncMap{
			"day": func(days int) string {
				return now.AddDate(0, 0, days).UTC().Format(time.RFC3339)
			},
			"legacy": func(days int) string {
				return now.AddDate(0, 0, days).UTC().Format(entitlement.LegacyDateLayout) + "Z"
			},
		}).Parse(s.template)
		if err != nil {
			return nil, err
		}
		var out strings.Builder
		if err := tmpl.Execute(&out, nil); err != nil {
			return nil, err
		}
		return []byte(out.String()), nil
	}
	return nil, fmt.Errorf("sample %q not found", id)
}

// =============================================================================
// SAMPLE TEMPLATES
// =============================================================================

const mixedPortfolioTemplate = `[
  {
    "accountName": "BU Production Test",
    "accountDomain": "bu-production.example.com",
    "accountStatus": "Active",
    "accountType": "CUSTOMER",
    "roles": [
      {"role": "Smart Account Administrator"},
      {
        "role": "Virtual Account Administrator",
        "virtualAccount": "ATT ENCS",
        "assignedLicenses": {
          "status": "SUCCESS",
          "statusMessage": "Licenses retrieved",
          "licenses": [
            {
              "license": "CSR 1KV APPX 2500M",
              "quantity": 100, "inUse": 113, "available": -13,
              "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
              "reserved": 0, "isPortable": false, "status": "Out of Compliance",
              "licenseDetails": [
                {"startDate": "{{day -700}}", "endDate": "{{day 12}}",
                 "subscriptionId": "Sub208966", "status": "ACTIVE", "licenseType": "TERM", "quantity": 50},
                {"startDate": "{{day -400}}", "endDate": "{{day 12}}",
                 "subscriptionId": "Sub208967", "status": "ACTIVE", "licenseType": "TERM", "quantity": 50}
              ]
            },
            {
              "license": "ASAv30 Standard",
              "quantity": 20, "inUse": 7, "available": 13,
              "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
              "reserved": 0, "isPortable": true, "status": "In Compliance",
              "licenseDetails": [
                {"startDate": "{{day -380}}", "endDate": "{{day -15}}",
                 "subscriptionId": "Sub300001", "status": "EXPIRED", "licenseType": "TERM", "quantity": 20}
              ]
            }
          ]
        }
      },
      {
        "role": "Virtual Account User",
        "virtualAccount": "Lab",
        "licenses": [
          {
            "license": "ISRV AX 250M",
            "quantity": 10, "inUse": 4, "available": 6,
            "ahaApps": false, "billingType": null, "pendingQuantity": 0,
            "reserved": 0, "isPortable": false, "status": null,
            "licenseDetails": [
              {"startDate": "{{day -30}}", "endDate": null,
               "subscriptionId": null, "status": "ACTIVE", "licenseType": "PERPETUAL", "quantity": 10}
            ]
          }
        ]
      }
    ]
  },
  {
    "accountName": "Sales Enablement",
    "accountDomain": "sales.example.com",
    "accountStatus": "Active",
    "accountType": "HOLDING",
    "roles": [
      {
        "role": "Virtual Account User",
        "virtualAccount": "DEFAULT",
        "licenses": [
          {
            "license": "Webex Meetings Enterprise",
            "quantity": 250, "inUse": 262, "available": -12,
            "ahaApps": true, "billingType": "SUBSCRIPTION", "pendingQuantity": 5,
            "reserved": 0, "isPortable": false, "status": "Out of Compliance",
            "licenseDetails": [
              {"startDate": "{{day -300}}", "endDate": "{{day 3}}",
               "subscriptionId": "Sub410000", "status": "ACTIVE", "licenseType": "TERM", "quantity": 250}
            ]
          },
          {
            "license": "DNA Advantage",
            "quantity": 40, "inUse": 31, "available": 9,
            "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
            "reserved": 2, "isPortable": false, "status": "In Compliance",
            "licenseDetails": [
              {"startDate": "{{day -90}}", "endDate": "{{day 275}}",
               "subscriptionId": "Sub500000", "status": "ACTIVE", "licenseType": "TERM", "quantity": 40}
            ]
          }
        ]
      },
      {"role": "APPENDED VA USER", "virtualAccount": "Unused"}
    ]
  }
]`

const legacyDatesTemplate = `[
  {
    "accountName": "Legacy Holdings",
    "accountDomain": "legacy.example.com",
    "accountStatus": "Active",
    "accountType": "CUSTOMER",
    "roles": [
      {
        "role": "Virtual Account User",
        "virtualAccount": "DEFAULT",
        "licenses": [
          {
            "license": "ISRV AX 1G",
            "quantity": 30, "inUse": 12, "available": 18,
            "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
            "reserved": 0, "isPortable": true, "status": "In Compliance",
            "licenseDetails": [
              {"startDate": "{{legacy -365}}", "endDate": "{{legacy -1}}",
               "subscriptionId": "Sub1", "status": "EXPIRED", "licenseType": "TERM", "quantity": 10},
              {"startDate": "{{legacy -30}}", "endDate": "{{legacy 20}}",
               "subscriptionId": "Sub2", "status": "ACTIVE", "licenseType": "TERM", "quantity": 20}
            ]
          }
        ]
      }
    ]
  }
]`
