package license

import (
	"fmt"
	"sort"
)

// =============================================================================
// SHORTAGE VIEW - Licenses in use beyond their assigned quantity
// =============================================================================
// A grant with several details repeats its counters on every row, so rows are
// first de-duplicated on (virtual account, license, detail quantity, in use),
// keeping the first. shortage = inUse - assigned quantity; only positive
// shortages are kept, largest first.
// =============================================================================

// ShortageEntry is one license in shortage within a sub-account.
type ShortageEntry struct {
	License  string `json:"license"`
	Quantity int    `json:"quantity"`
	InUse    int    `json:"inUse"`
	Shortage int    `json:"shortage"`
}

// ShortageTree: account -> sub-account -> licenses in shortage, largest first.
type ShortageTree = OrderedMap[*OrderedMap[[]ShortageEntry]]

type shortageRow struct {
	Account    string
	SubAccount string
	ShortageEntry
}

type shortageKey struct {
	VirtualAccount string
	License        string
	Quantity       int
	InUse          int
}

// LicenseShortage nests every license in shortage by account and sub-account.
func (e *Engine) LicenseShortage() *ShortageTree {
	return rememberValue(e, "license_shortage", func() *ShortageTree {
		return buildShortage(e.shortageRows())
	})
}

// TopLicenseShortage is LicenseShortage over the limit largest shortages.
func (e *Engine) TopLicenseShortage(limit int) *ShortageTree {
	limit = limitOf(limit)
	return rememberValue(e, fmt.Sprintf("top_license_shortage:%d", limit), func() *ShortageTree {
		return buildShortage(head(e.shortageRows(), limit))
	})
}

func (e *Engine) shortageRows() []shortageRow {
	return rememberValue(e, "shortage_rows", func() []shortageRow {
		seen := make(map[shortageKey]bool)
		rows := make([]shortageRow, 0)
		for _, r := range e.records {
			key := shortageKey{r.VirtualAccount, r.License, r.Quantity, r.InUse}
			if seen[key] {
				continue
			}
			seen[key] = true

			shortage := r.InUse - r.AssignedQuantity
			if shortage <= 0 {
				continue
			}
			rows = append(rows, shortageRow{
				Account:    r.AccountName,
				SubAccount: r.VirtualAccount,
				ShortageEntry: ShortageEntry{
					License:  r.License,
					Quantity: r.AssignedQuantity,
					InUse:    r.InUse,
					Shortage: shortage,
				},
			})
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Shortage > rows[j].Shortage
		})
		return rows
	})
}

func buildShortage(rows []shortageRow) *ShortageTree {
	return Build2(rows,
		func(r shortageRow) (string, string) { return r.Account, r.SubAccount },
		func(r shortageRow) ShortageEntry { return r.ShortageEntry },
		Append[ShortageEntry]())
}
