package license

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// ErrDivisionByZeroInUsage is returned when a usage group has no assigned
// quantity to divide by. It is never coerced to zero, Inf or NaN.
var ErrDivisionByZeroInUsage = errors.New("division by zero in license usage")

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DivisionByZeroInUsageError names the (account, sub-account, license) group
// whose summed assigned quantity is zero.
type DivisionByZeroInUsageError struct {
	Account    string
	SubAccount string
	License    string
	InUse      int
}

func (e *DivisionByZeroInUsageError) Error() string {
	return fmt.Sprintf("division by zero in license usage: %q / %q / %q has %d in use and no assigned quantity",
		e.Account, e.SubAccount, e.License, e.InUse)
}

func (e *DivisionByZeroInUsageError) Unwrap() error {
	return ErrDivisionByZeroInUsage
}

// IsDivisionByZero returns true if a usage view failed on a zero denominator.
func IsDivisionByZero(err error) bool {
	return errors.Is(err, ErrDivisionByZeroInUsage)
}
