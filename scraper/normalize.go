// backend/scraper/normalize.go
package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/gewnthar/dentalportal/backend/models"
)

// Tried in order; the first layout that parses wins.
// Meridiem layouts are matched against an upper-cased copy of the input.
var timeLayouts = []string{
	"15:4",
	"15.4",
	"3:4 PM",
	"3:4PM",
	"3.4 PM",
	"3.4PM",
	"15:4:5",
	"3:4:5 PM",
	"1504",
}

// D/M/Y comes first, so "03/04/2025" is the 3rd of April.
var dateLayouts = []string{
	"2/1/2006",
	"2006-1-2",
	"2-1-2006",
	"1/2/2006",
	"2006/1/2",
}

// ParseTime converts raw to a zero-padded 24h HH:MM. ok is false when no
// layout matched; the returned value is then the best-effort fallback.
func ParseTime(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	// Bare "930" is 09:30; "1504" needs all four digits.
	if len(s) == 3 && isDigits(s) {
		s = "0" + s
	}

	upper := strings.ToUpper(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()), true
		}
	}

	parts := strings.Split(strings.ReplaceAll(s, ".", ":"), ":")
	if len(parts) >= 2 && isDigits(parts[0]) && isDigits(parts[1]) {
		return zeroPad(parts[0]) + ":" + zeroPad(parts[1]), false
	}
	return s, false
}

// NormalizeTime never fails: unrecognised input comes back trimmed.
func NormalizeTime(raw string) string {
	t, _ := ParseTime(raw)
	return t
}

// ParseDate converts raw to YYYY-MM-DD. ok is false when no layout matched,
// in which case the original string is returned.
func ParseDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return raw, false
}

// NormalizeDate returns "" for empty input and the original string when
// the value is not a recognised date.
func NormalizeDate(raw string) string {
	d, _ := ParseDate(raw)
	return d
}

var statusDictionary = map[string]models.Status{
	"confirmada":  models.StatusConfirmed,
	"confirmed":   models.StatusConfirmed,
	"completada":  models.StatusCompleted,
	"completed":   models.StatusCompleted,
	"cancelada":   models.StatusCancelled,
	"cancelled":   models.StatusCancelled,
	"canceled":    models.StatusCancelled,
	"pendiente":   models.StatusPending,
	"pending":     models.StatusPending,
	"reagendada":  models.StatusRescheduled,
	"rescheduled": models.StatusRescheduled,
}

// Substring rules, first match wins.
var statusKeywords = []struct {
	tokens []string
	status models.Status
}{
	{[]string{"confirm"}, models.StatusConfirmed},
	{[]string{"complet", "realizad"}, models.StatusCompleted},
	{[]string{"cancel", "anulad"}, models.StatusCancelled},
	{[]string{"reagen", "reprog", "mover"}, models.StatusRescheduled},
	{[]string{"pend"}, models.StatusPending},
}

// NormalizeStatus classifies free-form status text. Anything unrecognised
// is pending.
func NormalizeStatus(raw string) models.Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return models.StatusPending
	}
	if st, ok := statusDictionary[s]; ok {
		return st
	}
	for _, rule := range statusKeywords {
		for _, tok := range rule.tokens {
			if strings.Contains(s, tok) {
				return rule.status
			}
		}
	}
	return models.StatusPending
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func zeroPad(s string) string {
	if len(s) >= 2 {
		return s
	}
	return "0" + s
}
