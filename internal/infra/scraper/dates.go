package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var spanishMonths = map[string]time.Month{
	"enero": time.January, "ene": time.January,
	"febrero": time.February, "feb": time.February,
	"marzo": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "jun": time.June,
	"julio": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"septiembre": time.September, "setiembre": time.September, "sep": time.September, "sept": time.September, "set": time.September,
	"octubre": time.October, "oct": time.October,
	"noviembre": time.November, "nov": time.November,
	"diciembre": time.December, "dic": time.December,
}

var (
	// "8 de mayo de 2025 - 12:16", "Lunes 12 de marzo del 2025", "12 mar. 2025"
	spanishDateRe = regexp.MustCompile(`(\d{1,2})\s+(?:de\s+)?([a-z]+)\.?,?\s+(?:de\s+|del\s+)?(\d{4})`)
	clockRe       = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	numericDateRe = regexp.MustCompile(`(\d{1,4})[/.-](\d{1,2})[/.-](\d{2,4})`)
	yearFirstRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	rfc1123Re     = regexp.MustCompile(`^[A-Za-z]{3}, \d{1,2} [A-Za-z]{3} \d{4}`)
)

// ParseDate parses a publication date as shown by Spanish-language news
// sites. Source-specific layouts are tried first, then ISO 8601 and RFC 1123
// through dateparse, then "12 de marzo de 2025" style text, then numeric
// d/m/Y or Y-m-d.
// Dates without a zone are interpreted in UTC.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// ISO 8601 系と英語の RFC 1123 は dateparse に任せる。d/m/Y は月先頭と誤読されるので渡さない
	if yearFirstRe.MatchString(s) || rfc1123Re.MatchString(s) {
		if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(s)
	if m := spanishDateRe.FindStringSubmatch(lower); m != nil {
		if month, ok := spanishMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			hour, minute := clock(lower[strings.Index(lower, m[0])+len(m[0]):])
			if t, ok := date(year, month, day, hour, minute); ok {
				return t, true
			}
		}
	}

	if m := numericDateRe.FindStringSubmatch(lower); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		c, _ := strconv.Atoi(m[3])
		hour, minute := clock(lower[strings.Index(lower, m[0])+len(m[0]):])
		if len(m[1]) == 4 {
			return date(a, time.Month(b), c, hour, minute)
		}
		if len(m[3]) == 2 {
			c += 2000
		}
		return date(c, time.Month(b), a, hour, minute)
	}

	return time.Time{}, false
}

// clock extracts an "hh:mm" that follows the date, if any.
func clock(rest string) (int, int) {
	m := clockRe.FindStringSubmatch(rest)
	if m == nil {
		return 0, 0
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	if h > 23 || mi > 59 {
		return 0, 0
	}
	return h, mi
}

// date builds a UTC time and rejects values that time.Date would normalize
// (31 de febrero).
func date(year int, month time.Month, day, hour, minute int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || year < 1970 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
