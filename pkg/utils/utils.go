package utils

import (
	"time"
)

// DateLayout is the ISO 8601 calendar date format used on the wire and in storage
const DateLayout = "2006-01-02"

// ParseDate parses an ISO 8601 calendar date into UTC midnight
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders t as an ISO 8601 calendar date
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// StartOfDay returns the UTC calendar date containing t
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar date forward by n days
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// WholeDaysBetween returns the number of complete 24h periods from start to end.
// The result is negative when end is before start.
func WholeDaysBetween(start, end time.Time) int {
	d := end.Sub(start)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
