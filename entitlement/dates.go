package entitlement

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATES - Grant detail start/end parsing
// =============================================================================
// The portal mixes ISO-8601 timestamps ("2019-01-18T01:07:36Z"), bare dates
// ("2019-05-20") and a legacy short form ("05/31/19 00:00"). A "Z" marker is
// first tried against the legacy short form; anything else, or a legacy miss,
// is matched against the inferred layouts. Results are always UTC.
// =============================================================================

// LegacyDateLayout is the portal's short month/day/year form.
const LegacyDateLayout = "01/02/06 15:04"

var inferredDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	LegacyDateLayout,
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
}

// ParseDate parses a grant detail date into UTC. Naive values are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}

	if strings.Contains(s, "Z") {
		legacy := strings.TrimSpace(strings.TrimSuffix(s, "Z"))
		if t, err := time.Parse(LegacyDateLayout, legacy); err == nil {
			return t.UTC(), nil
		}
	}

	for _, layout := range inferredDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// parseOptionalDate keeps a null date null.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
