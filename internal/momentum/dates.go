package momentum

import (
	"time"
)

// dateLayout is the canonical calendar-date form used throughout the engine
// and the record store. Dates never carry a time component; "same day" means
// equal YYYY-MM-DD strings.
const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight time.
// Malformed dates are rejected, never coerced.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return t, nil
}

// FormatDate renders a time as its YYYY-MM-DD calendar date.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DateOf truncates a time to UTC midnight.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// WeekStart returns the Monday of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = DateOf(t)
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return AddDays(t, -offset)
}

// WeekEnd returns the Sunday of the ISO week containing t.
func WeekEnd(t time.Time) time.Time {
	return AddDays(WeekStart(t), 6)
}
