/*
errors.go - Error types for entitlement ingestion

PURPOSE:
  Everything that can go wrong while turning a raw entitlement document
  into flat records. Callers decide what to tell the user; this package
  only says what was wrong and where.

ERROR CATEGORIES:
  1. Structural errors - a required key is missing or has the wrong type
  2. Date errors - a start/end date matches none of the known layouts

USAGE:
  records, err := entitlement.Normalize(doc)
  if entitlement.IsMalformed(err) {
      var me *entitlement.MalformedEntitlementError
      errors.As(err, &me) // me.Account, me.License, me.Field ...
  }

SEE ALSO:
  - normalize.go: Produces these errors with account/role/license context
  - decode.go: Records field problems while decoding
*/
package entitlement

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedEntitlement is returned when a required field of an account,
	// role, grant or grant detail is missing or has the wrong type.
	ErrMalformedEntitlement = errors.New("malformed entitlement document")

	// ErrInvalidDate is returned when a date string matches none of the
	// supported layouts. It is always wrapped in a MalformedEntitlementError
	// when produced by the normalizer.
	ErrInvalidDate = errors.New("invalid date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedEntitlementError names the offending account, role and license.
// Fields that do not apply (e.g. License for an account-level problem) are empty.
type MalformedEntitlementError struct {
	Account        string
	Role           string
	VirtualAccount string
	License        string
	Field          string
	Reason         string
	Err            error // underlying cause, may be nil
}

func (e *MalformedEntitlementError) Error() string {
	var where []string
	if e.Account != "" {
		where = append(where, fmt.Sprintf("account %q", e.Account))
	}
	if e.Role != "" {
		where = append(where, fmt.Sprintf("role %q", e.Role))
	}
	if e.VirtualAccount != "" {
		where = append(where, fmt.Sprintf("virtual account %q", e.VirtualAccount))
	}
	if e.License != "" {
		where = append(where, fmt.Sprintf("license %q", e.License))
	}

	msg := "malformed entitlement"
	if len(where) > 0 {
		msg += " (" + strings.Join(where, ", ") + ")"
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *MalformedEntitlementError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedEntitlement, e.Err}
	}
	return []error{ErrMalformedEntitlement}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsMalformed returns true if the error is due to a malformed document.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedEntitlement)
}
