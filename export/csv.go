// Package export writes flat entitlement records for spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/warp/license-engine/entitlement"
)

// ============================================================================
// CSV EXPORT - Writes []entitlement.Record as CSV
// ============================================================================
// Header is entitlement.Columns. Dates are RFC3339 in UTC, null values are
// empty cells, booleans are "true"/"false".
// ============================================================================

// WriteRecords writes a header row and one row per record to w.
func WriteRecords(w io.Writer, records []entitlement.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(entitlement.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// row renders r in entitlement.Columns order.
func row(r entitlement.Record) []string {
	return []string{
		r.AccountName,
		r.AccountDomain,
		r.AccountStatus,
		r.AccountType,
		r.Role,
		r.VirtualAccount,
		r.VirtualAccountStatus,
		r.StatusMessage,
		r.License,
		strconv.Itoa(r.AssignedQuantity),
		strconv.Itoa(r.InUse),
		strconv.Itoa(r.Available),
		strconv.FormatBool(r.AhaApps),
		r.BillingType,
		strconv.Itoa(r.PendingQuantity),
		strconv.Itoa(r.Reserved),
		strconv.FormatBool(r.IsPortable),
		r.AssignedStatus,
		r.LicenseType,
		strconv.Itoa(r.Quantity),
		date(r.StartDate),
		date(r.EndDate),
		optional(r.SubscriptionID),
		r.Status,
	}
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
