package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Legacy entry dates arrived in two text encodings depending on which
// import path produced the row: Brazilian day-first (31/12/2023, also
// seen with dashes) and ISO-ish year-first (2023-12-31, also seen with
// slashes). Both are accepted everywhere a date is parsed.
var (
	reDayFirst  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	reYearFirst = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
)

// DateOrd encodes a calendar date as year*10000 + month*100 + day.
// The encoding sorts and compares chronologically as a plain integer.
func DateOrd(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DateOrdOf parses a date in either legacy encoding and returns its
// ordinal key. Returns 0 and false when the text matches neither
// pattern or encodes an impossible date.
func DateOrdOf(s string) (int, bool) {
	y, m, d, ok := splitDate(s)
	if !ok {
		return 0, false
	}
	return y*10000 + m*100 + d, true
}

// ParseDate parses a date in either legacy encoding.
func ParseDate(s string) (time.Time, error) {
	y, m, d, ok := splitDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

// FormatBR renders a date in either legacy encoding as dd/mm/yyyy,
// the display form. Unparseable input is returned unchanged so a bad
// historical row still shows something.
func FormatBR(s string) string {
	y, m, d, ok := splitDate(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d/%02d/%04d", d, m, y)
}

// OrdToBR renders an ordinal key as dd/mm/yyyy.
func OrdToBR(ord int) string {
	return fmt.Sprintf("%02d/%02d/%04d", ord%100, (ord/100)%100, ord/10000)
}

func splitDate(s string) (y, m, d int, ok bool) {
	if mm := reDayFirst.FindStringSubmatch(s); mm != nil {
		d, _ = strconv.Atoi(mm[1])
		m, _ = strconv.Atoi(mm[2])
		y, _ = strconv.Atoi(mm[3])
	} else if mm := reYearFirst.FindStringSubmatch(s); mm != nil {
		y, _ = strconv.Atoi(mm[1])
		m, _ = strconv.Atoi(mm[2])
		d, _ = strconv.Atoi(mm[3])
	} else {
		return 0, 0, 0, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, 0, false
	}
	// Reject days the month doesn't have (30/02 etc).
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return 0, 0, 0, false
	}
	return y, m, d, true
}
