// Package clock converts between local civil times of day and their
// canonical UTC wall-clock-minute form used for sweep matching.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFormat is returned for unparseable or out-of-range time input.
var ErrInvalidFormat = errors.New("invalid time format")

// Normalize parses user-entered time of day and returns canonical "HH:MM".
// Accepted forms: 24-hour "HH:MM" and 12-hour "H:MM AM/PM", case, space and
// period insensitive ("9:05 p.m.").
func Normalize(input string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, ".", "")

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem = "AM"
		s = strings.TrimSpace(strings.TrimSuffix(s, "AM"))
	case strings.HasSuffix(s, "PM"):
		meridiem = "PM"
		s = strings.TrimSpace(strings.TrimSuffix(s, "PM"))
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", ErrInvalidFormat
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", ErrInvalidFormat
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", ErrInvalidFormat
	}
	if minute < 0 || minute > 59 {
		return "", ErrInvalidFormat
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return "", ErrInvalidFormat
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "PM" {
			hour += 12
		}
	} else if hour < 0 || hour > 23 {
		return "", ErrInvalidFormat
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// ToUTC anchors a canonical local "HH:MM" to today's date in zone, converts
// to UTC and keeps only the minute of day. Cross-midnight offsets collapse
// correctly because sweep comparison also works in minute-of-day space.
func ToUTC(local string, zone *time.Location, now time.Time) (string, error) {
	h, m, err := split(local)
	if err != nil {
		return "", err
	}
	today := now.In(zone)
	dt := time.Date(today.Year(), today.Month(), today.Day(), h, m, 0, 0, zone)
	return dt.UTC().Format("15:04"), nil
}

// ToLocal is the inverse of ToUTC at minute granularity.
func ToLocal(utc string, zone *time.Location, now time.Time) (string, error) {
	h, m, err := split(utc)
	if err != nil {
		return "", err
	}
	today := now.UTC()
	dt := time.Date(today.Year(), today.Month(), today.Day(), h, m, 0, 0, time.UTC)
	return dt.In(zone).Format("15:04"), nil
}

// MinutesBetween returns the minute-of-day gap from a to b, adding a day when
// b is earlier than a (cross-midnight windows, e.g. a deadline past midnight).
func MinutesBetween(a, b string) (int, error) {
	ah, am, err := split(a)
	if err != nil {
		return 0, err
	}
	bh, bm, err := split(b)
	if err != nil {
		return 0, err
	}
	diff := (bh*60 + bm) - (ah*60 + am)
	if diff < 0 {
		diff += 24 * 60
	}
	return diff, nil
}

// Display12h renders canonical "HH:MM" as "3:04 PM" for user-facing echoes.
func Display12h(canonical string) string {
	t, err := time.Parse("15:04", canonical)
	if err != nil {
		return canonical
	}
	return t.Format("3:04 PM")
}

func split(canonical string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", canonical)
	if err != nil {
		return 0, 0, ErrInvalidFormat
	}
	return t.Hour(), t.Minute(), nil
}
