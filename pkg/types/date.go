package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO-8601 calendar date used in every persisted record.
	DateLayout = "2006-01-02"
	// LegacyDateLayout is the month/day/year form older sale files were written with.
	LegacyDateLayout = "1/2/2006"
)

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders the ISO form of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts the ISO form first and falls back to month/day/year.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.Parse(DateLayout, trimmed); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(LegacyDateLayout, trimmed); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
