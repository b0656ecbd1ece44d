package models

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC on the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String renders the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// FormatDate renders a date as YYYY-MM-DD, or "" when d is nil
func FormatDate(d *Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields nil.
// Longer timestamps are truncated to their date part.
func ParseDate(s string) (*Date, error) {
	if s == "" {
		return nil, nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", s, err)
	}
	d := DateOf(t)
	return &d, nil
}
