package license

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// TECHNOLOGY MIX VIEW - Share of in-use licenses per architecture
// =============================================================================
// Records with inUse > 0 are classified through the architecture table
// (unmapped licenses are Uncategorized and logged), summed per (account,
// category) and expressed as a percentage of that account's total. Every
// record counts, so a grant with several details contributes its inUse once
// per detail.
// =============================================================================

// TechnologyShare is an architecture's share of an account's in-use licenses,
// in percent.
type TechnologyShare struct {
	InUse float64 `json:"inUse"`
}

// TechnologyTree: account -> architecture category -> share.
type TechnologyTree = OrderedMap[*OrderedMap[TechnologyShare]]

type technologyRow struct {
	Account  string
	Category string
	InUse    int
	Percent  float64
}

// LicenseTechnologyMix returns each account's in-use share per architecture,
// categories in first-seen order.
func (e *Engine) LicenseTechnologyMix() *TechnologyTree {
	return rememberValue(e, "license_technology_mix", func() *TechnologyTree {
		return buildTechnology(e.technologyRows())
	})
}

// TopLicenseTechnologyMix is LicenseTechnologyMix ordered by share, largest first.
func (e *Engine) TopLicenseTechnologyMix() *TechnologyTree {
	return rememberValue(e, "top_license_technology_mix", func() *TechnologyTree {
		sorted := append([]technologyRow(nil), e.technologyRows()...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Percent > sorted[j].Percent
		})
		return buildTechnology(sorted)
	})
}

func (e *Engine) technologyRows() []technologyRow {
	return rememberValue(e, "technology_rows", func() []technologyRow {
		type key struct{ account, category string }

		index := make(map[key]int)
		rows := make([]technologyRow, 0)
		totals := make(map[string]int)
		unmapped := make(map[string]bool)

		for _, r := range e.records {
			if r.InUse <= 0 {
				continue
			}
			category, ok := e.architectures.Architecture(r.License)
			if !ok {
				category = Uncategorized
				if !unmapped[r.License] {
					unmapped[r.License] = true
					e.log.WithFields(logrus.Fields{"license": r.License}).Warn("missing architecture for license")
				}
			}

			k := key{r.AccountName, category}
			i, seen := index[k]
			if !seen {
				i = len(rows)
				index[k] = i
				rows = append(rows, technologyRow{Account: r.AccountName, Category: category})
			}
			rows[i].InUse += r.InUse
			totals[r.AccountName] += r.InUse
		}

		for i := range rows {
			rows[i].Percent = 100 * float64(rows[i].InUse) / float64(totals[rows[i].Account])
		}
		return rows
	})
}

func buildTechnology(rows []technologyRow) *TechnologyTree {
	return Build2(rows,
		func(r technologyRow) (string, string) { return r.Account, r.Category },
		func(r technologyRow) TechnologyShare { return TechnologyShare{InUse: r.Percent} },
		Overwrite[TechnologyShare]())
}
