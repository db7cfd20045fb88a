package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportDoc = `[{
  "accountName": "Acme",
  "roles": [{
    "role": "Virtual Account User",
    "virtualAccount": "Core",
    "licenses": [
      {
        "license": "ROUTER",
        "quantity": 4, "inUse": 1, "available": 3,
        "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
        "reserved": 0, "isPortable": false, "status": "In Compliance",
        "licenseDetails": [{"startDate": null, "endDate": "2026-03-05T00:00:00Z", "quantity": 4}]
      },
      {
        "license": "FW",
        "quantity": 10, "inUse": 12, "available": -2,
        "ahaApps": false, "billingType": "PREPAID", "pendingQuantity": 0,
        "reserved": 0, "isPortable": false, "status": "Out of Compliance",
        "licenseDetails": [{"startDate": null, "endDate": "2026-01-01T00:00:00Z", "quantity": 10}]
      }
    ]
  }]
}]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func report(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Views(t *testing.T) {
	doc := writeFile(t, "doc.json", reportDoc)
	base := []string{"-file", doc, "-now", "2026-03-01T00:00:00Z"}

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"accounts", []string{"-view", "accounts"}, `{"Acme":["Core"]}`},
		{"expired", []string{"-view", "expired"}, `{"Acme":{"Core":{"FW":{"quantity":10,"endDate":"2026/01/01"}}}}`},
		{"expiring", []string{"-view", "expiring", "-days", "7"}, `{"count":1,"records":{"Acme":{"Core":{"ROUTER":[{"quantity":4,"endDate":"2026/03/05"}]}}}}`},
		{"shortage", []string{"-view", "shortage", "-top", "5"}, `{"Acme":{"Core":[{"license":"FW","quantity":10,"inUse":12,"shortage":2}]}}`},
		{"usage", []string{"-view", "usage"}, `{"dict_size":2,"usage_dict":{"Acme":{"Core":{"ROUTER":{"usage":25},"FW":{"usage":120}}}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, out, stderr := report(t, append(append([]string{}, base...), tc.args...)...)

			require.Equal(t, 0, code, stderr)
			assert.JSONEq(t, tc.want, out)
		})
	}
}

func TestRun_TechnologyWithArchitectures(t *testing.T) {
	doc := writeFile(t, "doc.json", reportDoc)
	arch := writeFile(t, "arch.yaml", "architectures:\n  - {license: ROUTER, architecture: Routing}\n  - {license: FW, architecture: Security}\n")

	code, out, stderr := report(t, "-file", doc, "-view", "technology", "-architectures", arch, "-top", "1")

	require.Equal(t, 0, code, stderr)
	var mix map[string]map[string]struct {
		InUse float64 `json:"inUse"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &mix))
	assert.InDelta(t, 100*12/13.0, mix["Acme"]["Security"].InUse, 1e-9)
	assert.InDelta(t, 100*1/13.0, mix["Acme"]["Routing"].InUse, 1e-9)
	assert.Less(t, strings.Index(out, "Security"), strings.Index(out, "Routing"))
}

func TestRun_RecordsAsCSV(t *testing.T) {
	doc := writeFile(t, "doc.json", reportDoc)
	out := filepath.Join(t.TempDir(), "licenses.csv")

	code, _, stderr := report(t, "-file", doc, "-view", "records", "-format", "csv", "-out", out)

	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "accountName,accountDomain"))
}

func TestRun_Errors(t *testing.T) {
	doc := writeFile(t, "doc.json", reportDoc)
	bad := writeFile(t, "bad.json", `{"not": "an array"}`)

	cases := map[string]struct {
		args []string
		code int
	}{
		"missing file flag":   {[]string{"-view", "usage"}, 2},
		"csv for a view":      {[]string{"-file", doc, "-view", "usage", "-format", "csv"}, 2},
		"bad now":             {[]string{"-file", doc, "-now", "yesterday"}, 2},
		"unknown view":        {[]string{"-file", doc, "-view", "forecast"}, 1},
		"malformed document":  {[]string{"-file", bad}, 1},
		"unreadable document": {[]string{"-file", filepath.Join(t.TempDir(), "nope.json")}, 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, _ := report(t, tc.args...)
			assert.Equal(t, tc.code, code)
		})
	}
}
