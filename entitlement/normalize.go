/*
normalize.go - Flattening of entitlement documents into Records

PURPOSE:
  Walks accounts -> roles -> grants -> grant details in document order and
  emits one Record per grant detail. Account fields are copied by value into
  every row derived from that account.

RULES:
  - Roles outside the virtual-account set are ignored.
  - A virtual-account role without grants is logged and skipped.
  - A grant with an empty detail list contributes no rows.
  - Dates are parsed to UTC; null dates stay nil.
  - Missing or mistyped required fields fail with MalformedEntitlementError.
    Defaults are only ever applied to optional structure, never to counters.

USAGE:
  doc, err := entitlement.ParseDocument(raw)
  records, err := entitlement.Normalize(doc)

SEE ALSO:
  - document.go: Input shape and decoding
  - record.go: Output shape
*/
package entitlement

import (
	"github.com/sirupsen/logrus"
)

// Normalizer flattens entitlement documents. The zero value logs to the
// logrus standard logger.
type Normalizer struct {
	Log logrus.FieldLogger
}

// NewNormalizer creates a normalizer. A nil logger means logrus.StandardLogger().
func NewNormalizer(log logrus.FieldLogger) *Normalizer {
	return &Normalizer{Log: log}
}

// Normalize flattens doc with a default Normalizer.
func Normalize(doc Document) ([]Record, error) {
	return (&Normalizer{}).Normalize(doc)
}

// Normalize flattens doc into records in document order. An empty document
// yields an empty, non-nil slice.
func (n *Normalizer) Normalize(doc Document) ([]Record, error) {
	log := n.logger()
	records := make([]Record, 0)

	for _, account := range doc {
		if account.problem != nil {
			return nil, malformed(account.problem, Record{AccountName: account.AccountName}, "")
		}

		base := Record{
			AccountName:   account.AccountName,
			AccountDomain: account.AccountDomain,
			AccountStatus: account.AccountStatus,
			AccountType:   account.AccountType,
		}

		for _, role := range account.Roles {
			if !IsVirtualAccountRole(role.Name) {
				if role.problem != nil {
					return nil, malformed(role.problem, base, "")
				}
				continue
			}

			row := base
			row.Role = role.Name
			row.VirtualAccount = role.VirtualAccount
			if role.problem != nil {
				return nil, malformed(role.problem, row, "")
			}

			fields := logrus.Fields{
				"account":         account.AccountName,
				"virtual_account": role.VirtualAccount,
			}

			var grants []Grant
			switch g := role.Grants.(type) {
			case AssignedGrants:
				row.VirtualAccountStatus = g.Status
				row.StatusMessage = g.StatusMessage
				grants = g.Licenses
				log.WithFields(fields).Debug("assignedLicenses found")
			case PlainGrants:
				grants = g.Licenses
				log.WithFields(fields).Debug("licenses found")
			default:
				log.WithFields(fields).Warn("no licenses or assignedLicenses found, skipping role")
				continue
			}

			for _, grant := range grants {
				rows, err := flattenGrant(row, grant)
				if err != nil {
					return nil, err
				}
				records = append(records, rows...)
			}
		}
	}

	return records, nil
}

func (n *Normalizer) logger() logrus.FieldLogger {
	if n == nil || n.Log == nil {
		return logrus.StandardLogger()
	}
	return n.Log
}

// flattenGrant emits one row per grant detail of grant.
func flattenGrant(row Record, grant Grant) ([]Record, error) {
	if grant.problem != nil {
		return nil, malformed(grant.problem, row, grant.License)
	}

	row.License = grant.License
	row.AssignedQuantity = grant.Quantity
	row.InUse = grant.InUse
	row.Available = grant.Available
	row.AhaApps = grant.AhaApps
	row.BillingType = grant.BillingType
	row.PendingQuantity = grant.PendingQuantity
	row.Reserved = grant.Reserved
	row.IsPortable = grant.IsPortable
	row.AssignedStatus = grant.Status

	rows := make([]Record, 0, len(grant.Details))
	for _, detail := range grant.Details {
		if detail.problem != nil {
			p := *detail.problem
			p.Field = joinField("licenseDetails", p.Field)
			return nil, malformed(&p, row, grant.License)
		}

		start, err := parseOptionalDate(detail.StartDate)
		if err != nil {
			return nil, malformed(&problem{Field: "licenseDetails.startDate", Reason: err.Error(), Err: err}, row, grant.License)
		}
		end, err := parseOptionalDate(detail.EndDate)
		if err != nil {
			return nil, malformed(&problem{Field: "licenseDetails.endDate", Reason: err.Error(), Err: err}, row, grant.License)
		}

		rec := row
		rec.StartDate = start
		rec.EndDate = end
		rec.SubscriptionID = detail.SubscriptionID
		rec.Status = detail.Status
		rec.LicenseType = detail.LicenseType
		rec.Quantity = detail.Quantity
		rows = append(rows, rec)
	}
	return rows, nil
}

func joinField(parent, field string) string {
	if field == "" {
		return parent
	}
	return parent + "." + field
}

func malformed(p *problem, at Record, license string) *MalformedEntitlementError {
	return &MalformedEntitlementError{
		Account:        at.AccountName,
		Role:           at.Role,
		VirtualAccount: at.VirtualAccount,
		License:        license,
		Field:          p.Field,
		Reason:         p.Reason,
		Err:            p.Err,
	}
}
