/*
Package entitlement turns the licensing portal's nested entitlement document
into flat, uniform records.

PURPOSE:
  The portal returns accounts -> roles -> license grants -> grant details.
  Everything downstream (views, exports) wants one row per grant detail with
  the account, sub-account and grant fields copied in. This package owns that
  flattening and nothing else: no network I/O, no persistence.

KEY CONCEPTS IN THIS FILE (document.go):
  - Document: the raw document, one Account per smart account
  - Role: a user's role in an account; only virtual-account roles carry grants
  - Grants: how a role's grants were delivered (none, plain, assigned)
  - Grant / GrantDetail: a named license and its dated tranches

DOCUMENT SHAPES:
  Two grant shapes occur in practice and both are accepted:

    {"role": "...", "virtualAccount": "VA", "assignedLicenses":
        {"licenses": [...], "status": "...", "statusMessage": "..."}}

    {"role": "...", "virtualAccount": "VA", "licenses": [...]}

  A role with neither key has no grants; it is skipped, not rejected.

DECODING:
  Decoding never fails on a missing or mistyped field. The first problem of
  each object is remembered and reported by Normalize with full context
  (account, role, license), so a caller gets "license X in account Y has no
  quantity" instead of a bare JSON error.

SEE ALSO:
  - normalize.go: Flattening into Records
  - record.go: The flat record and its column order
  - dates.go: Start/end date parsing
*/
package entitlement

import (
	"encoding/json"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a parsed entitlement document.
type Document []Account

// ParseDocument decodes a raw entitlement document. Only a document that is
// not a JSON array fails here; field-level problems surface from Normalize.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedEntitlementError{
			Reason: "document must be a JSON array of accounts",
			Err:    err,
		}
	}
	return doc, nil
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is a smart account and the roles the requesting user holds in it.
type Account struct {
	AccountName   string `json:"accountName"`
	AccountDomain string `json:"accountDomain"`
	AccountStatus string `json:"accountStatus"`
	AccountType   string `json:"accountType"`
	Roles         []Role `json:"roles"`

	problem *problem
}

func (a *Account) UnmarshalJSON(data []byte) error {
	d := newObjectDecoder(data)
	d.required("accountName", &a.AccountName)
	d.optional("accountDomain", &a.AccountDomain)
	d.optional("accountStatus", &a.AccountStatus)
	d.optional("accountType", &a.AccountType)
	d.required("roles", &a.Roles)
	a.problem = d.err
	return nil
}

// =============================================================================
// ROLE
// =============================================================================

// Role names recognised as carrying virtual-account grants. "APPENDED VA USER"
// is synthesised upstream for accounts whose VA user role is missing.
const (
	RoleVirtualAccountAdministrator = "Virtual Account Administrator"
	RoleVirtualAccountUser          = "Virtual Account User"
	RoleAppendedVAUser              = "APPENDED VA USER"
)

// IsVirtualAccountRole reports whether a role carries virtual-account grants.
func IsVirtualAccountRole(role string) bool {
	switch role {
	case RoleVirtualAccountAdministrator, RoleVirtualAccountUser, RoleAppendedVAUser:
		return true
	}
	return false
}

// Role is one role of the user within an account. Only virtual-account roles
// are decoded beyond their name; every other role is ignored entirely.
type Role struct {
	Name           string
	VirtualAccount string
	Grants         Grants

	problem *problem
}

func (r *Role) UnmarshalJSON(data []byte) error {
	d := newObjectDecoder(data)
	d.required("role", &r.Name)
	if d.err != nil || !IsVirtualAccountRole(r.Name) {
		r.Grants = NoGrants{}
		r.problem = d.err
		return nil
	}

	d.required("virtualAccount", &r.VirtualAccount)
	switch {
	case d.has("assignedLicenses"):
		var assigned assignedLicenses
		d.required("assignedLicenses", &assigned)
		if assigned.problem != nil && d.err == nil {
			d.err = &problem{
				Field:  joinField("assignedLicenses", assigned.problem.Field),
				Reason: assigned.problem.Reason,
				Err:    assigned.problem.Err,
			}
		}
		r.Grants = AssignedGrants{
			Licenses:      assigned.Licenses,
			Status:        assigned.Status,
			StatusMessage: assigned.StatusMessage,
		}
	case d.has("licenses"):
		var licenses []Grant
		d.required("licenses", &licenses)
		r.Grants = PlainGrants{Licenses: licenses}
	default:
		r.Grants = NoGrants{}
	}
	r.problem = d.err
	return nil
}

type assignedLicenses struct {
	Licenses      []Grant
	Status        string
	StatusMessage string

	problem *problem
}

func (a *assignedLicenses) UnmarshalJSON(data []byte) error {
	d := newObjectDecoder(data)
	d.required("licenses", &a.Licenses)
	d.optional("status", &a.Status)
	d.optional("statusMessage", &a.StatusMessage)
	a.problem = d.err
	return nil
}

// =============================================================================
// GRANTS - How a role's grants were delivered
// =============================================================================

// Grants is one of NoGrants, PlainGrants or AssignedGrants.
type Grants interface {
	grantList() []Grant
}

// NoGrants: the role had neither "assignedLicenses" nor "licenses".
type NoGrants struct{}

// PlainGrants: grants listed directly under "licenses", without a status.
type PlainGrants struct {
	Licenses []Grant
}

// AssignedGrants: grants listed under "assignedLicenses.licenses" with the
// virtual account's compliance status.
type AssignedGrants struct {
	Licenses      []Grant
	Status        string
	StatusMessage string
}

func (NoGrants) grantList() []Grant         { return nil }
func (g PlainGrants) grantList() []Grant    { return g.Licenses }
func (g AssignedGrants) grantList() []Grant { return g.Licenses }

// =============================================================================
// GRANT
// =============================================================================

// Grant is a named license with its counters within one virtual account.
type Grant struct {
	License         string        `json:"license"`
	Quantity        int           `json:"quantity"`
	InUse           int           `json:"inUse"`
	Available       int           `json:"available"`
	AhaApps         bool          `json:"ahaApps"`
	BillingType     string        `json:"billingType"`
	PendingQuantity int           `json:"pendingQuantity"`
	Reserved        int           `json:"reserved"`
	IsPortable      bool          `json:"isPortable"`
	Status          string        `json:"status"`
	Details         []GrantDetail `json:"licenseDetails"`

	problem *problem
}

func (g *Grant) UnmarshalJSON(data []byte) error {
	d := newObjectDecoder(data)
	d.required("license", &g.License)
	d.required("quantity", &g.Quantity)
	d.required("inUse", &g.InUse)
	d.required("available", &g.Available)
	d.required("ahaApps", &g.AhaApps)
	d.nullable("billingType", &g.BillingType)
	d.required("pendingQuantity", &g.PendingQuantity)
	d.required("reserved", &g.Reserved)
	d.required("isPortable", &g.IsPortable)
	d.nullable("status", &g.Status)
	d.required("licenseDetails", &g.Details)
	g.problem = d.err
	return nil
}

// GrantDetail is one dated tranche of a grant. Dates are kept as delivered;
// Normalize parses them.
type GrantDetail struct {
	StartDate      *string `json:"startDate"`
	EndDate        *string `json:"endDate"`
	SubscriptionID *string `json:"subscriptionId"`
	Status         string  `json:"status"`
	LicenseType    string  `json:"licenseType"`
	Quantity       int     `json:"quantity"`

	problem *problem
}

func (gd *GrantDetail) UnmarshalJSON(data []byte) error {
	d := newObjectDecoder(data)
	d.nullable("startDate", &gd.StartDate)
	d.nullable("endDate", &gd.EndDate)
	d.optional("subscriptionId", &gd.SubscriptionID)
	d.optional("status", &gd.Status)
	d.optional("licenseType", &gd.LicenseType)
	d.required("quantity", &gd.Quantity)
	gd.problem = d.err
	return nil
}
