package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	isoDatePathExpr     = regexp.MustCompile(`/(\d{4}-\d{2}-\d{2})(?:/|$)`)
	sectionDatePathExpr = regexp.MustCompile(`/[A-Za-z][\w-]*/(\d{4})/(\d{2})(\d{2})`)
	isoDateExpr         = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// DateOf truncates t to its calendar date, expressed as UTC midnight.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD cell.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ExtractDate derives the publication date of a listing entry.
// The link is tried first (a /YYYY-MM-DD/ segment, then /section/YYYY/MMDD),
// then any YYYY-MM-DD found in the raw date text supplied by the parser.
func ExtractDate(link, rawDate string) (time.Time, error) {
	if m := isoDatePathExpr.FindStringSubmatch(link); m != nil {
		if t, err := ParseDate(m[1]); err == nil {
			return t, nil
		}
	}

	if m := sectionDatePathExpr.FindStringSubmatch(link); m != nil {
		if t, err := ParseDate(fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])); err == nil {
			return t, nil
		}
	}

	if match := isoDateExpr.FindString(rawDate); match != "" {
		if t, err := ParseDate(match); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("no date in link %q", link)
}
