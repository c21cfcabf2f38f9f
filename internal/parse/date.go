// Package parse holds the pure input parsers for the intake dialogue.
package parse

import (
	"regexp"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102 15:04",
	"20060102",
	"02/01/2006 15:04",
	"02/01/2006",
}

var structuredDate = regexp.MustCompile(`^(\d{4})-?(\d{2})-?(\d{2})(?:[ T](\d{1,2})[:.](\d{2}))?$`)

// When resolves free-form date text to an instant. The second return is
// false when the text could not be resolved; the caller falls back to
// the current time and keeps the raw text for display. It never panics.
func When(raw string, now time.Time) (time.Time, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, false
	}

	switch strings.ToLower(text) {
	case "now", "today", "sekarang", "hari ini":
		return now, true
	}

	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return ts, true
		}
	}

	// "2024-03-01 14:00" style input with odd spacing.
	if swapped := strings.Replace(text, " ", "T", 1); swapped != text {
		if ts, err := time.ParseInLocation("2006-01-02T15:04", swapped, now.Location()); err == nil {
			return ts, true
		}
	}

	if m := structuredDate.FindStringSubmatch(text); m != nil {
		ts, err := time.ParseInLocation("2006-01-02 15:04", rebuild(m), now.Location())
		if err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}

func rebuild(m []string) string {
	hour, minute := "00", "00"
	if m[4] != "" {
		hour = m[4]
		if len(hour) == 1 {
			hour = "0" + hour
		}
		minute = m[5]
	}
	return m[1] + "-" + m[2] + "-" + m[3] + " " + hour + ":" + minute
}
