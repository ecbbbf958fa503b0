// Package temporal parses loosely-formatted, human-entered date strings into
// partial calendar dates. A date may carry year-only, year-month, or full
// year-month-day precision; unknown components are zero.
package temporal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date with inferred precision. Month and Day are zero
// when the input did not specify them.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// String renders the date at its own precision (2001, 2001-03, 2001-03-01).
func (d *Date) String() string {
	switch {
	case d.Day != 0:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case d.Month != 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d", d.Year)
	}
}

// Equal reports whether two dates match at every component.
func (d *Date) Equal(other *Date) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Range is an optional pair of dates bounding a span or connection.
// Either side may be nil.
type Range struct {
	Start *Date
	End   *Date
}

// Layouts with full year-month-day precision, tried in order.
var dayLayouts = []string{
	"2006-01-02",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"02/01/2006",
}

// Layouts with year-month precision.
var monthLayouts = []string{
	"2006-01",
	"January 2006",
	"Jan 2006",
}

// Parse converts a human-entered date string into a Date.
//
// An empty string means "no constraint" and yields (nil, nil). A non-empty
// string that matches no known layout yields (nil, error): callers must treat
// that as a validation failure for a present field while remaining free to
// omit optional fields entirely.
func Parse(text string) (*Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
		}
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &Date{Year: t.Year(), Month: int(t.Month())}, nil
		}
	}

	// Bare year. strconv rather than a "2006" layout because time.Parse
	// accepts out-of-range values like "20066" for that layout.
	if year, err := strconv.Atoi(text); err == nil && year >= 1 && year <= 9999 {
		return &Date{Year: year}, nil
	}

	return nil, fmt.Errorf("unparseable date %q", text)
}

// ParseRange is a date-pair convenience wrapper over Parse. It returns nil
// when neither bound is present and an error when either present bound is
// unparseable.
func ParseRange(start, end string) (*Range, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	e, err := Parse(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if s == nil && e == nil {
		return nil, nil
	}
	return &Range{Start: s, End: e}, nil
}
