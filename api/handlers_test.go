/*
handlers_test.go - HTTP tests for the license API

Tests for:
- Document upload, lookup, deletion and validation errors
- Every view endpoint, including ?top and ?days handling
- Architecture table management feeding the technology mix
- Sample documents
*/
package api_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/license-engine/api"
	"github.com/warp/license-engine/cache"
	"github.com/warp/license-engine/entitlement"
	"github.com/warp/license-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	docs := cache.NewMemory(time.Hour, time.Hour)
	t.Cleanup(func() { docs.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := api.NewHandler(store, docs, log)
	h.Now = func() time.Time { return now }
	var seq int
	h.NewID = func() string {
		seq++
		return fmt.Sprintf("doc-%d", seq)
	}
	return api.NewRouter(h, api.RouterConfig{})
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, srv http.Handler, doc string) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/documents", doc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto api.DocumentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	return dto.ID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

const portfolioDoc = `[
  {
    "accountName": "Acme",
    "roles": [{
      "role": "Virtual Account User",
      "virtualAccount": "Core",
      "licenses": [
        {
          "license": "ROUTER",
          "quantity": 3, "inUse": 1, "available": 2,
          "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
          "reserved": 0, "isPortable": false, "status": "In Compliance",
          "licenseDetails": [{"startDate": null, "endDate": "2026-03-11T00:00:00Z", "quantity": 3}]
        },
        {
          "license": "FW",
          "quantity": 10, "inUse": 14, "available": -4,
          "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
          "reserved": 0, "isPortable": false, "status": "Out of Compliance",
          "licenseDetails": [{"startDate": null, "endDate": "2026-02-01T00:00:00Z", "quantity": 10}]
        }
      ]
    }]
  },
  {
    "accountName": "Beta",
    "roles": [{
      "role": "Virtual Account Administrator",
      "virtualAccount": "Edge",
      "assignedLicenses": {
        "status": "SUCCESS",
        "statusMessage": "ok",
        "licenses": [{
          "license": "SWITCH",
          "quantity": 5, "inUse": 2, "available": 3,
          "ahaApps": false, "billingType": null, "pendingQuantity": 0,
          "reserved": 0, "isPortable": true, "status": null,
          "licenseDetails": [{"startDate": null, "endDate": null, "quantity": 5}]
        }]
      }
    }]
  }
]`

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestUploadDocument_ReturnsSummary(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/documents", portfolioDoc)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"doc-1","accounts":["Acme","Beta"],"record_count":3}`, rec.Body.String())
}

func TestUploadDocument_Empty(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/documents", `[]`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"doc-1","accounts":[],"record_count":0}`, rec.Body.String())
}

func TestUploadDocument_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `nope`,
		"not an array":     `{"accountName": "Acme"}`,
		"missing quantity": `[{"accountName": "A", "roles": [{"role": "Virtual Account User", "virtualAccount": "V", "licenses": [{"license": "L"}]}]}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t)

			rec := do(t, srv, http.MethodPost, "/api/documents", doc)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "malformed_entitlement", errorCode(t, rec))
		})
	}
}

func TestGetDocument_AccountIndex(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"Acme":["Core"],"Beta":["Edge"]}`, string(bytes.TrimSpace(rec.Body.Bytes())))
}

func TestGetDocument_Unknown(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/documents/missing/usage", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_document", errorCode(t, rec))
}

func TestDeleteDocument(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodDelete, "/api/documents/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRecords_JSON(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/records", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var records []entitlement.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "ROUTER", records[0].License)
	assert.Equal(t, "Edge", records[2].VirtualAccount)
	assert.Nil(t, records[2].EndDate)
}

func TestGetRecords_CSV(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/records?format=csv", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, entitlement.Columns, rows[0])
}

func TestGetRecords_UnsupportedFormat(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/records?format=xlsx", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// VIEWS
// =============================================================================

func TestGetExpired(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/expired", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Acme":{"Core":{"FW":{"quantity":10,"endDate":"2026/02/01"}}}}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/expired?va=Edge&top=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestGetExpiring(t *testing.T) {
	// GIVEN: ROUTER ends in about nine and a half days
	// WHEN: Asking with the default window, a 3 day window and a bad window
	// THEN: 1 row, 0 rows and a 400

	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/expiring", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"count":1,"records":{"Acme":{"Core":{"ROUTER":[{"quantity":3,"endDate":"2026/03/11"}]}}}}`,
		rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/expiring?days=3&top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"records":{}}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/expiring?days=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExpiring_WideWindow(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	for _, days := range []string{"110000", "200000", "9223372036854775807"} {
		rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/expiring?days="+days, "")
		require.Equal(t, http.StatusOK, rec.Code, days)
		assert.JSONEq(t,
			`{"count":1,"records":{"Acme":{"Core":{"ROUTER":[{"quantity":3,"endDate":"2026/03/11"}]}}}}`,
			rec.Body.String(), days)
	}
}

func TestGetShortage(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/shortage?top=1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"Acme":{"Core":[{"license":"FW","quantity":10,"inUse":14,"shortage":4}]}}`,
		rec.Body.String())
}

func TestGetShortage_InvalidTop(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/shortage?top=many", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUsage_RoundedForDisplay(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/usage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dict_size":3,"usage_dict":{
		"Acme":{"Core":{"ROUTER":{"usage":33.3},"FW":{"usage":140}}},
		"Beta":{"Edge":{"SWITCH":{"usage":40}}}
	}}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/usage?top=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"Acme":{"Core":{"FW":{"usage":140}}},"Beta":{"Edge":{"SWITCH":{"usage":40}}}}`,
		string(bytes.TrimSpace(rec.Body.Bytes())))
}

func TestGetUsage_ZeroAssignedQuantity(t *testing.T) {
	srv := newServer(t)
	id := upload(t, srv, `[{"accountName": "Acme", "roles": [{
	  "role": "Virtual Account User", "virtualAccount": "Core",
	  "licenses": [{
	    "license": "GHOST", "quantity": 0, "inUse": 1, "available": -1,
	    "ahaApps": false, "billingType": null, "pendingQuantity": 0,
	    "reserved": 0, "isPortable": false, "status": null,
	    "licenseDetails": [{"startDate": null, "endDate": null, "quantity": 0}]
	  }]
	}]}]`)

	rec := do(t, srv, http.MethodGet, "/api/documents/"+id+"/usage", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "division_by_zero", errorCode(t, rec))
}

func TestGetTechnology_UsesArchitectureTable(t *testing.T) {
	// GIVEN: ROUTER and FW classified, SWITCH not
	// WHEN: Asking for the technology mix
	// THEN: Acme is split 1/15 vs 14/15, Beta is all Uncategorized

	srv := newServer(t)
	id := upload(t, srv, portfolioDoc)
	rec := do(t, srv, http.MethodPut, "/api/architectures",
		`[{"license":"ROUTER","architecture":"Routing"},{"license":"FW","architecture":"Security"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/technology", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"Acme":{"Routing":{"inUse":6.7},"Security":{"inUse":93.3}},"Beta":{"Uncategorized":{"inUse":100}}}`,
		string(bytes.TrimSpace(rec.Body.Bytes())))

	rec = do(t, srv, http.MethodGet, "/api/documents/"+id+"/technology?top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"Acme":{"Security":{"inUse":93.3},"Routing":{"inUse":6.7}},"Beta":{"Uncategorized":{"inUse":100}}}`,
		string(bytes.TrimSpace(rec.Body.Bytes())))
}

// =============================================================================
// ARCHITECTURES
// =============================================================================

func TestArchitectures_CRUD(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPut, "/api/architectures",
		`[{"license":"B","architecture":"Security"},{"license":"A","architecture":"Routing"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/architectures", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []api.ArchitectureDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].License)
	assert.Equal(t, "Routing", list[0].Architecture)

	rec = do(t, srv, http.MethodDelete, "/api/architectures/A", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/architectures/A", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_architecture", errorCode(t, rec))
}

func TestArchitectures_PutOne(t *testing.T) {
	// GIVEN: An empty table
	// WHEN: Classifying one license twice through its own URL
	// THEN: The last architecture wins and the stored entry is returned

	srv := newServer(t)

	rec := do(t, srv, http.MethodPut, "/api/architectures/ISRV", `{"architecture":"Routing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPut, "/api/architectures/ISRV", `{"architecture":"Collaboration"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got api.ArchitectureDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ISRV", got.License)
	assert.Equal(t, "Collaboration", got.Architecture)

	rec = do(t, srv, http.MethodGet, "/api/architectures", "")
	var list []api.ArchitectureDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = do(t, srv, http.MethodPut, "/api/architectures/ISRV", `"Routing"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchitectures_Clear(t *testing.T) {
	srv := newServer(t)
	rec := do(t, srv, http.MethodPut, "/api/architectures",
		`[{"license":"B","architecture":"Security"},{"license":"A","architecture":"Routing"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/architectures", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/architectures", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestArchitectures_InvalidEntry(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPut, "/api/architectures", `[{"license":"","architecture":"Routing"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/architectures", `{"license":"A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SAMPLES
// =============================================================================

func TestListSamples(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/samples", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var list []api.SampleDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list)
	assert.Equal(t, "mixed-portfolio", list[0].ID)
}

func TestLoadSample_MixedPortfolio(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/samples/load", `{"sample_id":"mixed-portfolio"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto api.DocumentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, []string{"BU Production Test", "Sales Enablement"}, dto.Accounts)
	assert.Equal(t, 6, dto.RecordCount)

	rec = do(t, srv, http.MethodGet, "/api/documents/"+dto.ID+"/expiring", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var soon struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &soon))
	assert.Equal(t, 3, soon.Count)
}

func TestLoadSample_LegacyDates(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/samples/load", `{"sample_id":"legacy-dates"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto api.DocumentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))

	rec = do(t, srv, http.MethodGet, "/api/documents/"+dto.ID+"/expired", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Legacy Holdings":{"DEFAULT":{"ISRV AX 1G":{"quantity":10,"endDate":"2026/02/28"}}}}`, rec.Body.String())
}

func TestLoadSample_Unknown(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/samples/load", `{"sample_id":"nope"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_sample", errorCode(t, rec))
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
