package budget

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var monthKeyRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthKey formats a year/month pair as "YYYY-MM".
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// IsMonthKey reports whether s is a well-formed "YYYY-MM" key.
func IsMonthKey(s string) bool {
	return monthKeyRegex.MatchString(s)
}

// ParseMonthKey splits a "YYYY-MM" key into its year and month.
func ParseMonthKey(s string) (int, time.Month, error) {
	if !IsMonthKey(s) {
		return 0, 0, fmt.Errorf("invalid month key %q", s)
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	return year, time.Month(month), nil
}

// MonthRange returns the first instant of the month and the first instant of the next one.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// MonthsBetween lists every month key from start to end inclusive.
// It returns nil when end precedes start.
func MonthsBetween(start, end string) ([]string, error) {
	sy, sm, err := ParseMonthKey(start)
	if err != nil {
		return nil, err
	}
	ey, em, err := ParseMonthKey(end)
	if err != nil {
		return nil, err
	}

	var keys []string
	cur := time.Date(sy, sm, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(ey, em, 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		keys = append(keys, MonthKey(cur.Year(), cur.Month()))
		cur = cur.AddDate(0, 1, 0)
	}
	return keys, nil
}
