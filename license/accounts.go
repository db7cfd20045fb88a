package license

// =============================================================================
// ACCOUNT INDEXES
// =============================================================================

// AccountNames returns the distinct account names in first-seen order.
func (e *Engine) AccountNames() []string {
	names := rememberValue(e, "account_names", func() []string {
		seen := make(map[string]bool)
		names := make([]string, 0)
		for _, r := range e.records {
			if !seen[r.AccountName] {
				seen[r.AccountName] = true
				names = append(names, r.AccountName)
			}
		}
		return names
	})
	return append([]string{}, names...)
}

// AccountSubAccounts returns, per account, its distinct sub-account
// (virtual account) names, both levels in first-seen order.
func (e *Engine) AccountSubAccounts() *OrderedMap[[]string] {
	return rememberValue(e, "account_sub_accounts", func() *OrderedMap[[]string] {
		out := NewOrderedMap[[]string]()
		seen := make(map[[2]string]bool)
		for _, r := range e.records {
			subs, _ := out.Get(r.AccountName)
			key := [2]string{r.AccountName, r.VirtualAccount}
			if !seen[key] {
				seen[key] = true
				subs = append(subs, r.VirtualAccount)
			}
			out.Set(r.AccountName, subs)
		}
		return out
	})
}
