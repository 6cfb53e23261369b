package fieldvalue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDateDotLong    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	reDateDotShort   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2})$`)
	reDateISO        = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reDateSlashLong  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reDateSlashShort = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`)

	reDatePrefix  = regexp.MustCompile(`^\s*(\d{1,2}[./]\d{1,2}[./]\d{2,4}|\d{4}-\d{1,2}-\d{1,2})`)
	reDateAnyhere = regexp.MustCompile(`\d{1,2}[./]\d{1,2}[./]\d{2,4}|\d{4}-\d{1,2}-\d{1,2}`)
)

// CenturyPivot splits two-digit years: below it they land in 20xx, otherwise 19xx.
const CenturyPivot = 50

// DisplayDateLayout is the date format written into forms.
const DisplayDateLayout = "02.01.2006"

// ExpandYear turns a two-digit year into a four-digit one.
func ExpandYear(yy int) int {
	if yy >= 100 {
		return yy
	}
	if yy < CenturyPivot {
		return 2000 + yy
	}
	return 1900 + yy
}

func isDate(value string) bool {
	v := strings.TrimSpace(value)
	return reDateDotLong.MatchString(v) ||
		reDateDotShort.MatchString(v) ||
		reDateISO.MatchString(v) ||
		reDateSlashLong.MatchString(v) ||
		reDateSlashShort.MatchString(v)
}

// ParseDate parses the accepted date shapes. Dot and slash forms are read day first.
// The result is at midnight UTC; impossible calendar dates are rejected.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	var d, m, y int
	switch {
	case reDateISO.MatchString(v):
		p := reDateISO.FindStringSubmatch(v)
		y, m, d = atoi(p[1]), atoi(p[2]), atoi(p[3])
	case reDateDotLong.MatchString(v):
		p := reDateDotLong.FindStringSubmatch(v)
		d, m, y = atoi(p[1]), atoi(p[2]), atoi(p[3])
	case reDateDotShort.MatchString(v):
		p := reDateDotShort.FindStringSubmatch(v)
		d, m, y = atoi(p[1]), atoi(p[2]), ExpandYear(atoi(p[3]))
	case reDateSlashLong.MatchString(v):
		p := reDateSlashLong.FindStringSubmatch(v)
		d, m, y = atoi(p[1]), atoi(p[2]), atoi(p[3])
	case reDateSlashShort.MatchString(v):
		p := reDateSlashShort.FindStringSubmatch(v)
		d, m, y = atoi(p[1]), atoi(p[2]), ExpandYear(atoi(p[3]))
	default:
		return time.Time{}, false
	}
	return makeDate(y, m, d)
}

func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t the way dates are written into forms.
func FormatDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// LooksLikeDate reports whether value starts with something date-shaped.
func LooksLikeDate(value string) bool {
	return reDatePrefix.MatchString(value)
}

// ContainsDate reports whether a date-shaped token appears anywhere in value.
func ContainsDate(value string) bool {
	return reDateAnyhere.MatchString(value)
}

func formatDateValue(value string) string {
	v := strings.TrimSpace(value)
	if t, ok := ParseDate(v); ok {
		return FormatDate(t)
	}
	// Two-digit day/month with an unparseable calendar date still gets padded.
	if p := reDateDotLong.FindStringSubmatch(v); p != nil {
		return fmt.Sprintf("%02d.%02d.%s", atoi(p[1]), atoi(p[2]), p[3])
	}
	return v
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
