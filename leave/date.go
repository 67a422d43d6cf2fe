package leave

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil date at day granularity
// =============================================================================

// Date is a calendar date with no time-of-day component. All accrual and
// request arithmetic happens at day granularity; anything finer (quarter-day
// time windows) is carried separately as HH:MM strings.
type Date struct {
	t time.Time
}

// NewDate constructs a date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }

// Period returns the calendar-month accrual period key, formatted YYYY-MM.
// Accrual grant records are keyed by this value.
func (d Date) Period() string { return d.t.Format("2006-01") }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// InclusiveDays counts the days in [d, to], both endpoints included.
// Returns 0 if to precedes d.
func (d Date) InclusiveDays(to Date) int {
	if to.Before(d) {
		return 0
	}
	return int(to.t.Sub(d.t).Hours()/24) + 1
}
