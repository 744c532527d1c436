package profiler

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Named heuristic predicates. Each is independently testable and maps onto
// one inference rule, so the priority chain in inferColumnType stays flat.

var (
	reInteger = regexp.MustCompile(`^-?\d+$`)
	reBoolean = regexp.MustCompile(`(?i)^(true|false|yes|no|1|0)$`)
	// Timestamp: date followed by a time component, space or T separated.
	reTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)
	// Bare date forms accepted by the profiler.
	reDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$|^\d{2}/\d{4}/\d{2}$|^\d{2}-\d{4}/\d{2}$`)
	// Column names that imply a temporal field even without matching values.
	reTimeName = regexp.MustCompile(`(?i)^(time|date|timestamp|created|updated|modified)(_at|_on)?$`)
)

func isIntegerLiteral(s string) bool { return reInteger.MatchString(s) }

func isFloatLiteral(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func isBooleanLiteral(s string) bool { return reBoolean.MatchString(s) }

func isTimestampLiteral(s string) bool { return reTimestamp.MatchString(s) }

func isDateLiteral(s string) bool { return reDate.MatchString(s) }

// IsTimeFieldName reports whether a column name alone marks it temporal.
func IsTimeFieldName(name string) bool { return reTimeName.MatchString(name) }

// Primary-key candidate thresholds: a column qualifies when more than 98% of
// rows carry a value and more than 98% of those values are distinct.
const (
	pkPresenceThreshold   = 0.98
	pkUniquenessThreshold = 0.98
)

// IsPrimaryKeyCandidate applies the presence/uniqueness thresholds.
func IsPrimaryKeyCandidate(presence, uniqueness float64) bool {
	return presence > pkPresenceThreshold && uniqueness > pkUniquenessThreshold
}

// inferColumnType runs the value rules in priority order over a bounded
// sample, first match wins. "All" rules need every value to match; temporal
// rules fire on any match. Rule 6 (name-based timestamp) only applies when no
// value rule matched.
func inferColumnType(name string, sample []string) string {
	if len(sample) > 0 {
		switch {
		case allMatch(sample, isIntegerLiteral):
			return "integer"
		case allMatch(sample, isFloatLiteral):
			return "float"
		case allMatch(sample, isBooleanLiteral):
			return "boolean"
		case anyMatch(sample, isTimestampLiteral):
			return "timestamp"
		case anyMatch(sample, isDateLiteral):
			return "date"
		}
	}
	if IsTimeFieldName(name) {
		return "timestamp"
	}
	return "string"
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func anyMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if fn(v) {
			return true
		}
	}
	return false
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
