package license

import (
	"fmt"
	"sort"

	"github.com/warp/license-engine/entitlement"
)

// =============================================================================
// EXPIRATION VIEWS
// =============================================================================
// Expired:        endDate strictly before now, ascending by endDate.
// Future-expiring: endDate strictly after now and strictly before
//                 now + window, ascending by endDate then descending by
//                 quantity. A record ending exactly "now" is in neither.
// Top variants cap the flat sorted list before grouping, so a sub-account
// whose rows missed the cut is absent from the result.
// =============================================================================

// EndDateLayout is how end dates are rendered in expiration views.
const EndDateLayout = "2006/01/02"

// MaxWindowDays bounds the future-expiring horizon. Parsed end dates never
// pass year 9999, so any wider window selects the same rows.
const MaxWindowDays = 10000 * 366

// ExpirationEntry is one dated tranche of a license in an expiration view.
type ExpirationEntry struct {
	Quantity int    `json:"quantity"`
	EndDate  string `json:"endDate"`
}

// ExpirationTree: account -> sub-account -> license -> tranches in sort order.
type ExpirationTree = OrderedMap[*OrderedMap[*OrderedMap[[]ExpirationEntry]]]

// ExpiredTree: account -> sub-account -> license -> last tranche in sort order.
type ExpiredTree = OrderedMap[*OrderedMap[*OrderedMap[ExpirationEntry]]]

// FutureExpiration is the result of FutureExpiring: the number of matching
// rows and the rows nested by account, sub-account and license.
type FutureExpiration struct {
	Count   int             `json:"count"`
	Records *ExpirationTree `json:"records"`
}

// -----------------------------------------------------------------------------
// Expired
// -----------------------------------------------------------------------------

// ExpiredRecords returns the records whose end date has passed, oldest first.
func (e *Engine) ExpiredRecords() []entitlement.Record {
	return append([]entitlement.Record(nil), e.expiredRecords()...)
}

func (e *Engine) expiredRecords() []entitlement.Record {
	return rememberValue(e, "expired_records", func() []entitlement.Record {
		now := e.clock()
		rows := make([]entitlement.Record, 0)
		for _, r := range e.records {
			if r.EndDate != nil && r.EndDate.Before(now) {
				rows = append(rows, r)
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].EndDate.Before(*rows[j].EndDate)
		})
		return rows
	})
}

// ExpiredLicenses nests the expired records by account, sub-account and
// license, keeping the latest-ending tranche per license. When vaFilter is
// given, only those virtual accounts are included.
func (e *Engine) ExpiredLicenses(vaFilter ...string) *ExpiredTree {
	key := "expired_licenses" + filterKey(vaFilter)
	return rememberValue(e, key, func() *ExpiredTree {
		return buildExpired(onlyVirtualAccounts(e.expiredRecords(), vaFilter))
	})
}

// TopExpiredLicenses is ExpiredLicenses over the first limit expired rows.
func (e *Engine) TopExpiredLicenses(limit int, vaFilter ...string) *ExpiredTree {
	limit = limitOf(limit)
	key := fmt.Sprintf("top_expired_licenses:%d%s", limit, filterKey(vaFilter))
	return rememberValue(e, key, func() *ExpiredTree {
		rows := onlyVirtualAccounts(e.expiredRecords(), vaFilter)
		return buildExpired(head(rows, limit))
	})
}

func buildExpired(rows []entitlement.Record) *ExpiredTree {
	return Build3(rows, recordPath, expirationEntry, Overwrite[ExpirationEntry]())
}

// -----------------------------------------------------------------------------
// Future expiring
// -----------------------------------------------------------------------------

// FutureExpiring returns the records ending within the next windowDays days.
func (e *Engine) FutureExpiring(windowDays int) FutureExpiration {
	key := fmt.Sprintf("future_expiring:%d", windowDays)
	return rememberValue(e, key, func() FutureExpiration {
		return buildFutureExpiration(e.futureExpiringRecords(windowDays))
	})
}

// TopFutureExpiring is FutureExpiring restricted to the first limit rows of
// the sorted set.
func (e *Engine) TopFutureExpiring(windowDays, limit int) FutureExpiration {
	limit = limitOf(limit)
	key := fmt.Sprintf("top_future_expiring:%d:%d", windowDays, limit)
	return rememberValue(e, key, func() FutureExpiration {
		return buildFutureExpiration(head(e.futureExpiringRecords(windowDays), limit))
	})
}

func (e *Engine) futureExpiringRecords(windowDays int) []entitlement.Record {
	key := fmt.Sprintf("future_expiring_records:%d", windowDays)
	return rememberValue(e, key, func() []entitlement.Record {
		now := e.clock()
		horizon := now.AddDate(0, 0, min(windowDays, MaxWindowDays))

		rows := make([]entitlement.Record, 0)
		for _, r := range e.records {
			if r.EndDate != nil && r.EndDate.After(now) && r.EndDate.Before(horizon) {
				rows = append(rows, r)
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if !a.EndDate.Equal(*b.EndDate) {
				return a.EndDate.Before(*b.EndDate)
			}
			return a.Quantity > b.Quantity
		})
		return rows
	})
}

func buildFutureExpiration(rows []entitlement.Record) FutureExpiration {
	return FutureExpiration{
		Count:   len(rows),
		Records: Build3(rows, recordPath, expirationEntry, Append[ExpirationEntry]()),
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func recordPath(r entitlement.Record) (string, string, string) {
	return r.AccountName, r.VirtualAccount, r.License
}

func expirationEntry(r entitlement.Record) ExpirationEntry {
	return ExpirationEntry{
		Quantity: r.Quantity,
		EndDate:  r.EndDate.Format(EndDateLayout),
	}
}

func onlyVirtualAccounts(rows []entitlement.Record, vaFilter []string) []entitlement.Record {
	if len(vaFilter) == 0 {
		return rows
	}
	allowed := make(map[string]bool, len(vaFilter))
	for _, va := range vaFilter {
		allowed[va] = true
	}
	out := make([]entitlement.Record, 0, len(rows))
	for _, r := range rows {
		if allowed[r.VirtualAccount] {
			out = append(out, r)
		}
	}
	return out
}

// filterKey renders a virtual-account filter as an order-independent memo key suffix.
func filterKey(vaFilter []string) string {
	if len(vaFilter) == 0 {
		return ""
	}
	sorted := append([]string(nil), vaFilter...)
	sort.Strings(sorted)
	return fmt.Sprintf(":%q", sorted)
}
