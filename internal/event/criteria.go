// Package event finds the one session tile that belongs to the requested
// class on the requested day, inside an asynchronously populated and
// possibly virtualized event list.
package event

import (
	"fmt"
	"regexp"
	"strings"
)

// Criteria identifies a class session. CourseCode, Semester and Section are
// required; Session is consulted only when the section token carries no
// separator. Immutable per run.
type Criteria struct {
	CourseName string
	CourseCode string
	Semester   string
	Section    string
	Session    string
}

// SubjectDetailsError reports required subject fields missing from the
// descriptor. It is fatal before any browser interaction.
type SubjectDetailsError struct {
	Missing []string
	Raw     string
}

func (e *SubjectDetailsError) Error() string {
	return fmt.Sprintf("event: missing required fields: %s (raw=%q)",
		strings.Join(e.Missing, ", "), e.Raw)
}

// ParseCriteria parses the subject descriptor: five fields in order
// course-name, course-code, semester, section, session, separated by "::",
// "|" or "^|". Missing trailing fields are empty; session is optional.
func ParseCriteria(raw string) (Criteria, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Criteria{}, &SubjectDetailsError{
			Missing: []string{"Course Code", "Semester", "Class Section"},
			Raw:     raw,
		}
	}

	var parts []string
	if strings.Contains(trimmed, "::") {
		parts = strings.Split(trimmed, "::")
	} else {
		parts = strings.Split(strings.ReplaceAll(trimmed, "^|", "|"), "|")
	}
	for len(parts) < 5 {
		parts = append(parts, "")
	}

	c := Criteria{
		CourseName: strings.TrimSpace(parts[0]),
		CourseCode: strings.TrimSpace(parts[1]),
		Semester:   strings.TrimSpace(parts[2]),
		Section:    strings.TrimSpace(parts[3]),
		Session:    strings.TrimSpace(parts[4]),
	}

	var missing []string
	if c.CourseCode == "" {
		missing = append(missing, "Course Code")
	}
	if c.Semester == "" {
		missing = append(missing, "Semester")
	}
	if c.Section == "" {
		missing = append(missing, "Class Section")
	}
	if len(missing) > 0 {
		return Criteria{}, &SubjectDetailsError{Missing: missing, Raw: raw}
	}
	return c, nil
}

// secPrefixRe finds "SEC B", "SECTION: B", "SEC-B" style prefixes; the
// section token itself is checked at the match position.
var secPrefixRe = regexp.MustCompile(`\bSEC(?:TION)?\s*[:-]?\s*`)

// digitSuffixRe rejects a bare token immediately followed by "-<digit>",
// so section "B" never matches "B-1" or "B-2".
var digitSuffixRe = regexp.MustCompile(`^\s*-\s*\d`)

// Matches tests a tile's visible text against the criteria. The text is
// normalised (whitespace collapsed, upper-cased) first; all non-empty
// criteria combine with logical AND.
func Matches(text string, c Criteria) bool {
	t := strings.ToUpper(strings.Join(strings.Fields(text), " "))

	if c.CourseCode != "" && !strings.Contains(t, strings.ToUpper(c.CourseCode)) {
		return false
	}
	if c.Semester != "" && !strings.Contains(t, "SEMESTER "+strings.ToUpper(c.Semester)) {
		return false
	}

	sec := strings.ToUpper(strings.TrimSpace(c.Section))
	if sec != "" && !sectionMatches(t, sec) {
		return false
	}

	// Session disambiguates only when the section itself cannot (no
	// separator splitting it into sub-sections).
	sess := strings.ToUpper(strings.TrimSpace(c.Session))
	if sess != "" && !strings.Contains(sec, "-") {
		if !strings.Contains(t, "SESSION "+sess) {
			return false
		}
	}
	return true
}

func sectionMatches(t, sec string) bool {
	if strings.Contains(sec, "-") {
		// A compound token like "B-1" must appear as an exact standalone
		// token, not embedded in a longer alphanumeric run.
		return hasStandaloneToken(t, sec, false)
	}
	return hasPrefixedSection(t, sec) ||
		hasParenthesizedSection(t, sec) ||
		hasStandaloneToken(t, sec, true)
}

// hasPrefixedSection matches "SEC B" / "SECTION: B" forms, still refusing a
// trailing "-<digit>".
func hasPrefixedSection(t, sec string) bool {
	for _, loc := range secPrefixRe.FindAllStringIndex(t, -1) {
		rest := t[loc[1]:]
		if !strings.HasPrefix(rest, sec) {
			continue
		}
		after := rest[len(sec):]
		if after != "" && isAlnum(after[0]) {
			continue
		}
		if digitSuffixRe.MatchString(after) {
			continue
		}
		return true
	}
	return false
}

func hasParenthesizedSection(t, sec string) bool {
	re := regexp.MustCompile(`\(\s*` + regexp.QuoteMeta(sec) + `\s*\)`)
	return re.MatchString(t)
}

// hasStandaloneToken reports whether tok occurs with non-alphanumeric
// characters (or string edges) on both sides. With guardDigitSuffix the
// occurrence is also rejected when "-<digit>" follows.
func hasStandaloneToken(t, tok string, guardDigitSuffix bool) bool {
	for i := 0; i < len(t); {
		j := strings.Index(t[i:], tok)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(tok)
		i = start + 1

		if start > 0 && isAlnum(t[start-1]) {
			continue
		}
		if end < len(t) && isAlnum(t[end]) {
			continue
		}
		if guardDigitSuffix && digitSuffixRe.MatchString(t[end:]) {
			continue
		}
		return true
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
