package license

import (
	"fmt"
	"sort"
)

// =============================================================================
// USAGE VIEW - Percentage of assigned quantity in use
// =============================================================================
// Rows are grouped by (account, sub-account, license) in first-seen order and
// inUse / assigned quantity are summed per group. usage = 100 * inUse /
// assigned. A group whose assigned quantity sums to zero fails the whole view
// with DivisionByZeroInUsageError. Groups with usage <= 0 are left out.
// Percentages are not rounded here.
// =============================================================================

// UsageEntry is the usage of one license in one sub-account.
type UsageEntry struct {
	Usage float64 `json:"usage"`
}

// UsageTree: account -> sub-account -> license -> usage.
type UsageTree = OrderedMap[*OrderedMap[*OrderedMap[UsageEntry]]]

// UsageSummary is the result of LicenseUsage.
type UsageSummary struct {
	DictSize  int        `json:"dict_size"`
	UsageDict *UsageTree `json:"usage_dict"`
}

type usageRow struct {
	Account    string
	SubAccount string
	License    string
	InUse      int
	Quantity   int
	Usage      float64
}

type usageKey struct {
	Account    string
	SubAccount string
	License    string
}

// LicenseUsage returns the usage of every license with usage above zero.
func (e *Engine) LicenseUsage() (UsageSummary, error) {
	return remember(e, "license_usage", func() (UsageSummary, error) {
		rows, err := e.usageRows()
		if err != nil {
			return UsageSummary{}, err
		}
		return UsageSummary{DictSize: len(rows), UsageDict: buildUsage(rows)}, nil
	})
}

// TopLicenseUsage returns the limit most used licenses, most used first.
func (e *Engine) TopLicenseUsage(limit int) (*UsageTree, error) {
	limit = limitOf(limit)
	return remember(e, fmt.Sprintf("top_license_usage:%d", limit), func() (*UsageTree, error) {
		rows, err := e.usageRows()
		if err != nil {
			return nil, err
		}
		sorted := append([]usageRow(nil), rows...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Usage > sorted[j].Usage
		})
		return buildUsage(head(sorted, limit)), nil
	})
}

func (e *Engine) usageRows() ([]usageRow, error) {
	return remember(e, "usage_rows", func() ([]usageRow, error) {
		index := make(map[usageKey]int)
		groups := make([]usageRow, 0)
		for _, r := range e.records {
			key := usageKey{r.AccountName, r.VirtualAccount, r.License}
			i, ok := index[key]
			if !ok {
				i = len(groups)
				index[key] = i
				groups = append(groups, usageRow{Account: r.AccountName, SubAccount: r.VirtualAccount, License: r.License})
			}
			groups[i].InUse += r.InUse
			groups[i].Quantity += r.AssignedQuantity
		}

		rows := make([]usageRow, 0, len(groups))
		for _, g := range groups {
			if g.Quantity == 0 {
				return nil, &DivisionByZeroInUsageError{
					Account:    g.Account,
					SubAccount: g.SubAccount,
					License:    g.License,
					InUse:      g.InUse,
				}
			}
			g.Usage = 100.0 * (float64(g.InUse) / float64(g.Quantity))
			if g.Usage > 0 && g.Quantity > 0 {
				rows = append(rows, g)
			}
		}
		return rows, nil
	})
}

func buildUsage(rows []usageRow) *UsageTree {
	return Build3(rows,
		func(r usageRow) (string, string, string) { return r.Account, r.SubAccount, r.License },
		func(r usageRow) UsageEntry { return UsageEntry{Usage: r.Usage} },
		Overwrite[UsageEntry]())
}
