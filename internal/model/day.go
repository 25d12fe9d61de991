package model

import (
	"fmt"
	"time"
)

// Day is an absolute calendar day (year, month, day of month).
//
// Days are absolute on purpose: the calendar never re-derives a date
// against "the current year", so availability spanning a year boundary
// behaves the same as any other range.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the Day containing t in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses "YYYY-MM-DD".
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, NewValidationError("invalid day %q: expected YYYY-MM-DD", s)
	}
	return DayOf(t), nil
}

// String returns the day in ISO form "YYYY-MM-DD".
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d == Day{} }

// Time returns midnight of the day in the given location.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Compare orders days chronologically: -1 if d precedes other, 0 if equal,
// +1 if d follows other.
func (d Day) Compare(other Day) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d precedes other.
func (d Day) Before(other Day) bool { return d.Compare(other) < 0 }

// MarshalText implements encoding.TextMarshaler (ISO form).
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
