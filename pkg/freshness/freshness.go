// pkg/freshness/freshness.go
package freshness

import (
	"fmt"
	"strings"
	"time"
)

// Status is a freshness tier assigned to a table's most recent update.
type Status int

const (
	// StatusCurrent means the data was updated within the last week
	StatusCurrent Status = iota
	// StatusRecent means the data is between 8 and 30 days old
	StatusRecent
	// StatusOutdated means the data is between 31 and 90 days old
	StatusOutdated
	// StatusStale means the data is between 91 days and a year old
	StatusStale
	// StatusCritical means the data is more than a year old
	StatusCritical
	// StatusNoData means no timestamp was available at all
	StatusNoData
	// StatusError means the timestamp could not be parsed, or the
	// lookup that should have produced it failed
	StatusError
)

// Tier boundaries in days, inclusive upper bounds. Fixed policy, named so
// they can be tuned in one place.
const (
	CurrentMaxAgeDays  = 7
	RecentMaxAgeDays   = 30
	OutdatedMaxAgeDays = 90
	StaleMaxAgeDays    = 365
)

// Label returns the human-readable tier name.
func (s Status) Label() string {
	switch s {
	case StatusCurrent:
		return "Current"
	case StatusRecent:
		return "Recent"
	case StatusOutdated:
		return "Outdated"
	case StatusStale:
		return "Stale"
	case StatusCritical:
		return "CRITICAL"
	case StatusNoData:
		return "No Data"
	case StatusError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Symbol returns the indicator used by the text report and the dashboard.
func (s Status) Symbol() string {
	switch s {
	case StatusCurrent:
		return "🟢"
	case StatusRecent:
		return "🟡"
	case StatusOutdated:
		return "🟠"
	case StatusStale:
		return "🔴"
	case StatusCritical:
		return "⛔"
	case StatusNoData:
		return "⚪"
	case StatusError:
		return "❌"
	default:
		return "?"
	}
}

func (s Status) String() string { return s.Label() }

// Classification is the result of classifying one raw date value against a
// reference date.
type Classification struct {
	Status  Status
	AgeDays int
	// Age is the display form of AgeDays ("5d"), or a placeholder when no
	// age exists ("N/A" for missing data, "-" for errors).
	Age string
	// Err carries the parse error when Status is StatusError for a
	// malformed value. It stays nil for NoData, which is reserved for
	// genuinely absent values.
	Err error
}

// ClassifyAge maps a non-negative age in whole days onto an age-based tier.
func ClassifyAge(days int) Status {
	switch {
	case days <= CurrentMaxAgeDays:
		return StatusCurrent
	case days <= RecentMaxAgeDays:
		return StatusRecent
	case days <= OutdatedMaxAgeDays:
		return StatusOutdated
	case days <= StaleMaxAgeDays:
		return StatusStale
	default:
		return StatusCritical
	}
}

// Classify converts a raw date-like value and a reference date into a
// freshness classification. It is a pure function: same inputs, same output.
//
// Absent input (empty or a textual null) classifies as NoData. Malformed
// input classifies as Error, which is deliberately distinct from NoData so
// operators can tell a broken value from a missing column.
func Classify(raw string, today time.Time) Classification {
	if isAbsent(raw) {
		return Classification{Status: StatusNoData, Age: "N/A"}
	}

	parsed, err := ParseDateValue(raw)
	if err != nil {
		return Classification{Status: StatusError, Age: "-", Err: err}
	}

	return ClassifyTime(parsed, today)
}

// ClassifyTime classifies an already-parsed timestamp. Future dates clamp to
// an age of zero, never negative, so clock skew shows up as Current.
func ClassifyTime(t time.Time, today time.Time) Classification {
	days := int(truncateToDay(today).Sub(truncateToDay(t)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return Classification{
		Status:  ClassifyAge(days),
		AgeDays: days,
		Age:     fmt.Sprintf("%dd", days),
	}
}

// ParseDateValue parses the textual date shapes that show up in scan output:
// a full datetime ("2024-05-01 13:00:00" or with a 'T' separator), a plain
// date, or a bare 4-digit year (interpreted as January 1st of that year).
func ParseDateValue(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)

	// Reduce datetimes to their date part; the tier only cares about days.
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if len(s) == 4 {
		if t, err := time.Parse("2006", s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date value %q", raw)
}

func isAbsent(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "null", "none", "<nil>":
		return true
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
