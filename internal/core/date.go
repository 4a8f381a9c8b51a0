package core

import (
	"time"
)

// CalendarDate is a year-month-day with no time-of-day component. It is
// stored as midnight UTC so that subtracting two dates always yields a whole
// number of days; local timezones never shift the calendar day.
type CalendarDate struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a CalendarDate from year, month, day.
func NewDate(year, month, day int) CalendarDate {
	return CalendarDate{time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (CalendarDate, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return CalendarDate{}, err
	}
	return CalendarDate{t}, nil
}

// Today truncates a wall-clock instant to its calendar day.
func Today(now time.Time) CalendarDate {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// DaysUntil returns the whole-day distance from today to d: negative when d
// is past, zero when d is today. Both operands are calendar days, so the
// division is always exact.
func (d CalendarDate) DaysUntil(today CalendarDate) int {
	return int(d.Time.Sub(today.Time) / (24 * time.Hour))
}

// AddDays returns the date n days later (or earlier for negative n).
func (d CalendarDate) AddDays(n int) CalendarDate {
	return CalendarDate{d.Time.AddDate(0, 0, n)}
}

// AddMonths advances by n calendar months, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29, not Mar 2/3).
func (d CalendarDate) AddMonths(n int) CalendarDate {
	year, month, day := d.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// Before reports whether d is strictly before o on the calendar.
func (d CalendarDate) Before(o CalendarDate) bool {
	return d.Time.Before(o.Time)
}

// IsEmpty reports an unset optional date.
func (d CalendarDate) IsEmpty() bool {
	return d.IsZero()
}

// Validate rejects the zero date where a date is required.
func (d CalendarDate) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders YYYY-MM-DD.
func (d CalendarDate) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON renders the date as "YYYY-MM-DD", or null when unset.
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", null, or the empty string.
func (d *CalendarDate) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = CalendarDate{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
