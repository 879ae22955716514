package utils

import (
	"time"
)

const (
	// SourceDateLayout is the DD/MM/YYYY layout the source and the stored rows use.
	SourceDateLayout = "02/01/2006"

	// ISODateLayout is the normalized YYYY-MM-DD layout.
	ISODateLayout = "2006-01-02"
)

// LoadLocation returns the named location, falling back to UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseSourceDate parses a DD/MM/YYYY date as a calendar date in UTC.
func ParseSourceDate(s string) (time.Time, error) {
	return time.Parse(SourceDateLayout, s)
}

// SourceDate formats t as DD/MM/YYYY.
func SourceDate(t time.Time) string {
	return t.Format(SourceDateLayout)
}

// SourceToISO converts DD/MM/YYYY to YYYY-MM-DD.
func SourceToISO(s string) (string, error) {
	t, err := ParseSourceDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(ISODateLayout), nil
}

// DaysBack returns the DD/MM/YYYY date offset calendar days before now.
func DaysBack(now time.Time, offset int) string {
	return SourceDate(now.AddDate(0, 0, -offset))
}

// StartOfDay truncates t to midnight in UTC, keeping t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
