package internal

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const ellipsis = "..."

// Truncate shortens s to at most limit characters. A shortened string ends in
// "..." and the marker counts toward the limit.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string([]rune(s)[:limit])
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit-len(ellipsis)]), isSpace) + ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Pluralize returns "N noun" or "N nouns"
func Pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// shortRepoName strips the owner from "owner/name"
func shortRepoName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

// firstNonEmpty returns the first argument that is not blank
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// containsFold reports whether substr occurs in s, ignoring case
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// parseTimestamp parses an RFC 3339 timestamp from a source payload
func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

// withinWindow reports whether t is at or after now-window
func withinWindow(t, now time.Time, window time.Duration) bool {
	return !t.Before(now.Add(-window))
}
