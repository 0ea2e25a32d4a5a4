package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month without day or time-of-day
// ⭐ SSOT: 월 단위 키는 이 타입으로만 표현
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates t to the month it falls in
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// NewMonth builds a Month, normalizing out-of-range month numbers
func NewMonth(year int, month time.Month) Month {
	return MonthOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// Start returns the first instant of the month in UTC
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month n months after m (n may be negative)
func (m Month) AddMonths(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

// Before reports whether m is strictly earlier than other
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// After reports whether m is strictly later than other
func (m Month) After(other Month) bool {
	return other.Before(m)
}

// IsZero reports whether m is the zero value
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// String formats the month as YYYY-MM
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Date formats the month start as YYYY-MM-DD (response format)
func (m Month) Date() string {
	return m.Start().Format("2006-01-02")
}

// MarshalText implements encoding.TextMarshaler
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.Date()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MonthParseError is returned when a month representation cannot be parsed
type MonthParseError struct {
	Input string
}

func (e *MonthParseError) Error() string {
	return fmt.Sprintf("invalid month %q: use YYYY-MM or YYYY-MM-DD", e.Input)
}

// Unwrap lets errors.Is(err, ErrInvalidMonth) match
func (e *MonthParseError) Unwrap() error {
	return ErrInvalidMonth
}

// Fixed-width layouts, tried only when the input has the same length
var monthLayouts = []string{
	"2006-01",
	"2006-01-02",
	"2006/01",
	"2006/01/02",
	"200601",
	"20060102",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Variable-width layouts (unpadded month/day, timestamps with zone or fraction)
var flexibleMonthLayouts = []string{
	"2006-1",
	"2006-1-2",
	"2006/1",
	"2006/1/2",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseMonth parses a month or date representation and truncates it to the month
func ParseMonth(s string) (Month, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Month{}, &MonthParseError{Input: s}
	}

	for _, layout := range monthLayouts {
		if len(layout) != len(trimmed) {
			continue
		}
		if t, err := time.Parse(layout, trimmed); err == nil {
			return MonthOf(t), nil
		}
	}
	for _, layout := range flexibleMonthLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return MonthOf(t), nil
		}
	}

	return Month{}, &MonthParseError{Input: s}
}

// ParseCompactDate parses a numeric YYYYMMDD date (Fama-French daily layout)
func ParseCompactDate(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) != 8 {
		return time.Time{}, false
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}
	t, err := time.Parse("20060102", trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
