package utils

import (
	"fmt"
	"time"
)

// ukLocation is used for every date shown to people; storage stays in UTC.
var ukLocation = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// FormatUKDate returns the date as DD/MM/YYYY in UK local time.
func FormatUKDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(ukLocation).Format("02/01/2006")
}

// FormatUKDatePtr returns the UK formatted date for pointer values, "-" for nil.
func FormatUKDatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return FormatUKDate(*t)
}

// FormatUKDateTime returns DD/MM/YYYY HH:MM in UK local time.
func FormatUKDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(ukLocation).Format("02/01/2006 15:04")
}

// FormatUKTime returns HH:MM in UK local time.
func FormatUKTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(ukLocation).Format("15:04")
}

// FormatDuration renders a time on site as "7h 05m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %02dm", h, m)
}

// ParseDate parses a YYYY-MM-DD form value into a UTC date.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"02/01/2006",
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := DateOnly(t)
			return &d, nil
		} else {
			lastErr = err
		}
	}
	return nil, lastErr
}
