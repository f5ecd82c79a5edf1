// Package period converts free-text fiscal period labels ("Janeiro/2024",
// "01/2024", "2024-01") into timestamps usable for chronological ordering.
// Labels come from user forms and spreadsheet imports, so parsing is lenient:
// anything unrecognizable degrades to the epoch and sorts as oldest.
package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Epoch is returned for blank or unparseable period labels.
var Epoch = time.Unix(0, 0).UTC()

// Portuguese month names and three-letter abbreviations, zero-based.
// "marco" is kept alongside "março" because imports frequently arrive
// with accents stripped.
var monthNames = map[string]int{
	"janeiro": 0, "fevereiro": 1, "março": 2, "marco": 2, "abril": 3,
	"maio": 4, "junho": 5, "julho": 6, "agosto": 7,
	"setembro": 8, "outubro": 9, "novembro": 10, "dezembro": 11,
	"jan": 0, "fev": 1, "mar": 2, "abr": 3, "mai": 4, "jun": 5,
	"jul": 6, "ago": 7, "set": 8, "out": 9, "nov": 10, "dez": 11,
}

// Structural patterns tried in order against the normalized label.
// yearFirst marks patterns where the first capture group is the year.
var patterns = []struct {
	re        *regexp.Regexp
	yearFirst bool
}{
	{re: regexp.MustCompile(`^([a-zà-ú]+)/(\d{4})$`)},    // "janeiro/2024"
	{re: regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)},      // "01/2024"
	{re: regexp.MustCompile(`^(\d{4})-(\d{1,2})$`), yearFirst: true}, // "2024-01"
	{re: regexp.MustCompile(`^([a-zà-ú]+)\s+(\d{4})$`)},  // "janeiro 2024"
}

// Generic date layouts tried when no structural pattern matches.
var fallbackLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"January 2006",
	"Jan 2006",
}

// Parse maps a free-text fiscal period label to the first day of the
// labeled month in UTC. It is total: blank or malformed input returns
// Epoch instead of an error, so unknown periods sort first ascending.
func Parse(text string) time.Time {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Epoch
	}

	normalized := strings.ToLower(trimmed)

	for _, p := range patterns {
		match := p.re.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}

		monthTok, yearTok := match[1], match[2]
		if p.yearFirst {
			monthTok, yearTok = yearTok, monthTok
		}

		year, err := strconv.Atoi(yearTok)
		if err != nil || year < 1900 || year > 2100 {
			continue
		}

		month, ok := resolveMonth(monthTok)
		if !ok {
			continue
		}

		return time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	}

	// Not a period label; maybe a plain date string.
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC()
		}
	}

	return Epoch
}

// resolveMonth maps a token to a zero-based month index, first by the
// Portuguese name table, then as a 1-12 number.
func resolveMonth(tok string) (int, bool) {
	if m, ok := monthNames[tok]; ok {
		return m, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return n - 1, true
}

// Before reports whether the period labeled a sorts strictly before b.
func Before(a, b string) bool {
	return Parse(a).Before(Parse(b))
}
