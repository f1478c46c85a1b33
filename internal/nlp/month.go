// Package nlp contains the small text-parsing helpers shared by the intent
// engine and the retriever: month scopes, "last N months" windows, and
// currency thresholds. All helpers operate on lower-cased query text and
// never allocate beyond their return values.
package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

// monthNameOrder fixes the scan order for bare month names: full names first,
// then abbreviations. When a query mentions several months, the earliest name
// in this list wins, every time.
var monthNameOrder = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug",
	"sep", "sept", "oct", "nov", "dec",
}

var bareNameRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(monthNameOrder))
	for i, name := range monthNameOrder {
		res[i] = regexp.MustCompile(`\b` + name + `\b`)
	}
	return res
}()

var (
	// two-digit branch first, or "2025-12" would match as month 1
	ymRe      = regexp.MustCompile(`(20\d{2})[-/](1[0-2]|0?[1-9])`)
	myRe      = regexp.MustCompile(`(1[0-2]|0?[1-9])[-/](20\d{2})`)
	nameYrRe  = regexp.MustCompile(`([a-z]{3,9})\s*(20\d{2})`)
	nameYY2Re = regexp.MustCompile(`([a-z]{3,9})-(\d{2})`)
	lastNRe   = regexp.MustCompile(`last\s+(\d{1,2})\s+months?`)
	overRe    = regexp.MustCompile(`over\s*\$?\s*(\d+(?:\.\d+)?)`)
)

// ParseMonth extracts a month scope from free text. It accepts "2025-08",
// "08/2025", "Aug 2025", "august", and "aug-25" (case-insensitive). A bare
// month name falls back to the current UTC year. Returns ok=false when no
// month is present.
func ParseMonth(text string) (year, month int, ok bool) {
	t := strings.ToLower(text)

	if m := ymRe.FindStringSubmatch(t); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		return year, month, true
	}
	if m := myRe.FindStringSubmatch(t); m != nil {
		year, _ = strconv.Atoi(m[2])
		month, _ = strconv.Atoi(m[1])
		return year, month, true
	}
	if m := nameYrRe.FindStringSubmatch(t); m != nil {
		if mo, known := monthNames[m[1]]; known {
			year, _ = strconv.Atoi(m[2])
			return year, mo, true
		}
	}
	for i, name := range monthNameOrder {
		if bareNameRes[i].MatchString(t) {
			return time.Now().UTC().Year(), monthNames[name], true
		}
	}
	if m := nameYY2Re.FindStringSubmatch(t); m != nil {
		if mo, known := monthNames[m[1]]; known {
			yy, _ := strconv.Atoi(m[2])
			return 2000 + yy, mo, true
		}
	}
	return 0, 0, false
}

// MonthScope returns the "YYYY-MM" month key found in text, or "" if none.
func MonthScope(text string) string {
	year, month, ok := ParseMonth(text)
	if !ok {
		return ""
	}
	return FormatMonthKey(year, month)
}

// FormatMonthKey renders a zero-padded "YYYY-MM" key. Keys compare correctly
// as plain strings because the format is year-first and fixed-width.
func FormatMonthKey(year, month int) string {
	var b strings.Builder
	b.Grow(7)
	b.WriteString(strconv.Itoa(year))
	b.WriteByte('-')
	if month < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.Itoa(month))
	return b.String()
}

// MonthKey truncates an ISO-8601 timestamp to its "YYYY-MM" prefix.
// Malformed or short input yields the raw prefix, which never matches a
// well-formed key.
func MonthKey(iso string) string {
	if len(iso) < 7 {
		return iso
	}
	return iso[:7]
}

// ParseLastNMonths extracts an explicit "last N months" window, clamped to
// [1,24]. "last six months" is recognized as a special spelled-out case.
func ParseLastNMonths(text string) (int, bool) {
	t := strings.ToLower(text)
	if m := lastNRe.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			n = 1
		}
		if n > 24 {
			n = 24
		}
		return n, true
	}
	if strings.Contains(t, "last six months") {
		return 6, true
	}
	return 0, false
}

// ParseOverThreshold extracts the N from an "over $N" phrase.
func ParseOverThreshold(text string) (float64, bool) {
	m := overRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PrevMonthKey steps a "YYYY-MM" key back one calendar month, rolling the
// year over at January.
func PrevMonthKey(year, month int) (int, int) {
	month--
	if month == 0 {
		month = 12
		year--
	}
	return year, month
}
