package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/amirulm/aidlog/internal/domain/activity"
)

// digitRun matches the first run of digits, tolerating thousands
// separators between groups.
var digitRun = regexp.MustCompile(`\d[\d,. _]*\d|\d`)

// unitTokens are suffixes that qualify a number without changing it.
// "1,200 Mushaf" is the number 1200, not free text.
var unitTokens = map[string]struct{}{
	"mushaf": {},
	"naskah": {},
	"unit":   {},
	"units":  {},
	"pcs":    {},
	"pax":    {},
	"orang":  {},
	"buah":   {},
	"kotak":  {},
	"set":    {},
}

// Count converts raw count text to the dual numeric/text representation.
// All-zero numeric input means "unknown" (an empty Count). Text whose
// digits are followed by anything other than a known unit token is
// preserved verbatim as a qualitative count.
func Count(raw string) activity.Count {
	text := strings.TrimSpace(raw)
	if text == "" {
		return activity.Count{}
	}

	loc := digitRun.FindStringIndex(text)
	if loc == nil {
		return activity.Count{Text: text}
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text[loc[0]:loc[1]])

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return activity.Count{Text: text}
	}

	rest := strings.TrimSpace(text[loc[1]:])
	prefix := strings.TrimSpace(text[:loc[0]])
	if prefix != "" || !isUnitToken(rest) {
		return activity.Count{Text: text}
	}

	if n == 0 {
		return activity.Count{}
	}
	return activity.Count{Number: &n}
}

func isUnitToken(s string) bool {
	if s == "" {
		return true
	}
	_, ok := unitTokens[strings.ToLower(s)]
	return ok
}
