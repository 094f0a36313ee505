// Package dateparse holds the pure text heuristics for calendar dates:
// flexible input parsing (including Excel serials), month-label extraction
// from sidebar text, day-panel header strings, and event aria-description
// dates. No DOM dependency, so everything here is table-testable.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// nowFunc is swapped in tests that depend on "today".
var nowFunc = time.Now

var monthLabelRe = regexp.MustCompile(
	`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December|` +
		`Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\b(?:[^0-9]{0,3}(\d{4}))?`)

var slashRe = regexp.MustCompile(`^\s*(\d{1,2})/(\d{1,2})/(\d{2,4})\s*$`)

// longDateRe matches "September 8, 2025" and "September 8 2025".
var longDateRe = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2}),?\s*(\d{4})`)

// eventAriaRe matches the event tile aria form "Monday 8 September, 2025".
var eventAriaRe = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2})\s+([A-Za-z]+),\s*(\d{4})`)

var layouts = []string{
	"2006-01-02",
	"02-01-2006", "2-1-2006", "02-01-06",
	"02-Jan-2006", "2-Jan-2006", "02-Jan-06",
	"02 Jan 2006", "2 Jan 2006",
	"02 January 2006", "2 January 2006",
	"Monday, 2 January 2006 at 3:04:05 PM",
	"Monday, 2 January 2006",
}

// Parse interprets a date string in any of the formats the workbook or the
// CLI may hand over: ISO, day-first with dashes, day-month-name, long
// weekday forms, M/D/Y (with D/M/Y fallback when invalid), and Excel serial
// numbers. Returns an error when nothing applies.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("dateparse: empty date string")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if d, ok := fromExcelSerial(serial); ok {
			return d, nil
		}
	}

	if m := slashRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if y < 100 {
			if y < 50 {
				y += 2000
			} else {
				y += 1900
			}
		}
		// MM/DD/YYYY first, DD/MM/YYYY when that is not a real date.
		if d, ok := makeDate(y, a, b); ok {
			return d, nil
		}
		if d, ok := makeDate(y, b, a); ok {
			return d, nil
		}
	}

	for _, layout := range layouts {
		if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return d, nil
		}
	}

	return time.Time{}, fmt.Errorf("dateparse: unrecognised date %q", s)
}

// fromExcelSerial converts an Excel day serial to a date. Both the 1900 and
// 1904 epoch interpretations are tried; when both land in a plausible range
// the one closest to today wins.
func fromExcelSerial(serial float64) (time.Time, bool) {
	days := int(serial)
	epochs := []time.Time{
		time.Date(1899, 12, 30, 0, 0, 0, 0, time.Local),
		time.Date(1904, 1, 1, 0, 0, 0, 0, time.Local),
	}

	var candidates []time.Time
	for _, epoch := range epochs {
		d := epoch.AddDate(0, 0, days)
		if d.Year() >= 1990 && d.Year() <= 2100 {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return time.Time{}, false
	}

	today := nowFunc()
	best := candidates[0]
	for _, c := range candidates[1:] {
		if absDuration(c.Sub(today)) < absDuration(best.Sub(today)) {
			best = c
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return t, true
}

// ExtractMonthLabel pulls the first month name (and trailing year, when
// present) out of free-form sidebar text. Returns "" when no month appears.
func ExtractMonthLabel(raw string) string {
	m := monthLabelRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	if m[2] != "" {
		return m[1] + " " + m[2]
	}
	return m[1]
}

// ParseMonthLabel resolves a "September 2025" / "Sep 2025" / "September"
// label to year and month. A label without a year gets fallbackYear.
func ParseMonthLabel(lbl string, fallbackYear int) (int, time.Month, bool) {
	lbl = strings.TrimSpace(lbl)
	for _, layout := range []string{"January 2006", "Jan 2006"} {
		if t, err := time.Parse(layout, lbl); err == nil {
			return t.Year(), t.Month(), true
		}
	}
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, lbl); err == nil {
			return fallbackYear, t.Month(), true
		}
	}
	return 0, 0, false
}

// ParseLongDate finds a "September 8, 2025" style date inside descriptive
// text such as an aria-label or title.
func ParseLongDate(s string) (time.Time, bool) {
	for _, m := range longDateRe.FindAllStringSubmatch(s, -1) {
		mon, ok := monthByName(m[1])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, int(mon), day); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseEventAria finds the "Monday 8 September, 2025" date embedded in an
// event tile's aria-description. En dashes are normalised first so time
// ranges do not break the match.
func ParseEventAria(s string) (time.Time, bool) {
	s = strings.ReplaceAll(s, "–", "-")
	for _, m := range eventAriaRe.FindAllStringSubmatch(s, -1) {
		mon, ok := monthByName(m[3])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[4])
		if d, ok := makeDate(year, int(mon), day); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// DayHeaderStrings returns the long-form header variants a day panel may
// carry: "Monday, September 8" with and without a leading zero on the day.
func DayHeaderStrings(d time.Time) []string {
	bare := fmt.Sprintf("%s, %s %d", d.Weekday(), d.Month(), d.Day())
	padded := fmt.Sprintf("%s, %s %02d", d.Weekday(), d.Month(), d.Day())
	if padded == bare {
		return []string{bare}
	}
	return []string{bare, padded}
}

func monthByName(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	full := map[string]time.Month{
		"january": 1, "february": 2, "march": 3, "april": 4, "may": 5,
		"june": 6, "july": 7, "august": 8, "september": 9, "october": 10,
		"november": 11, "december": 12,
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7,
		"aug": 8, "sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
	}
	m, ok := full[name]
	return m, ok
}
