// Package period maps symbolic lookback tokens to absolute cutoffs.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is a symbolic lookback window for aggregation queries.
type Period string

// Supported periods.
const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
	All   Period = "all"
)

// Default is used when the caller supplies no period at all.
const Default = Week

// ErrInvalidPeriod reports an unrecognized period token.
var ErrInvalidPeriod = errors.New("invalid period")

// Parse validates a period token. An empty token resolves to the
// default week window; any token outside the enumeration fails.
func Parse(token string) (Period, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return Default, nil
	}
	switch p := Period(token); p {
	case Day, Week, Month, All:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, token)
	}
}

// Since returns the absolute cutoff for the window ending at now.
// The second return value is false for All, meaning "no lower bound".
func (p Period) Since(now time.Time) (time.Time, bool) {
	switch p {
	case Day:
		return now.AddDate(0, 0, -1), true
	case Week:
		return now.AddDate(0, 0, -7), true
	case Month:
		return now.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}
