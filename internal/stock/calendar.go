package stock

import (
	"fmt"
	"strings"
	"time"
)

const (
	DayLayout  = "2006-01-02"
	TimeLayout = "2006-01-02 15:04"
)

// Calendar does the calendar-day arithmetic of the reconciliation in a fixed
// location. A zero Calendar uses UTC.
type Calendar struct {
	Location *time.Location
}

// NewCalendar returns a Calendar for loc; nil means UTC.
func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Location: loc}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// ParseDay parses a "YYYY-MM-DD" string into the start of that day.
func (c Calendar) ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, c.loc())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}

// ParseOptionalDay returns nil for an empty string.
func (c Calendar) ParseOptionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := c.ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// StartOfDay is midnight of the calendar day of t in the calendar location.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc())
}

// EndOfDay is the last representable instant of the calendar day of t.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Format renders the calendar day of t as YYYY-MM-DD.
func (c Calendar) Format(t time.Time) string {
	return t.In(c.loc()).Format(DayLayout)
}

// FormatTime renders t as "YYYY-MM-DD HH:MM" in the calendar location.
func (c Calendar) FormatTime(t time.Time) string {
	return t.In(c.loc()).Format(TimeLayout)
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDate accepts a full timestamp or a bare day. Timestamps without an
// offset and bare days are read in the calendar location.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc()); err == nil {
			return t, nil
		}
	}
	return c.ParseDay(s)
}

// Wall keeps the wall clock of t but moves it into the calendar location.
// Spreadsheet dates carry no zone and decode as UTC.
func (c Calendar) Wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), c.loc())
}
