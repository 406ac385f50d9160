package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical data point labels.
const (
	LabelRevenue       = "Revenue"
	LabelScope1        = "Scope 1"
	LabelScope2Market  = "Scope 2 (Market-based)"
	LabelScope3        = "Scope 3"
	LabelUnknown       = "Unknown"
	LabelInit          = "Init" // placeholder row written by add-company
	marketBasedLower   = "(market-based)"
	marketBasedDisplay = "(Market-based)"
)

// PreferredColumns is the display order for known data point columns.
var PreferredColumns = []string{LabelRevenue, LabelScope1, LabelScope2Market, LabelScope3}

// CanonicalLabels lists the labels the classifier can produce.
func CanonicalLabels() []string {
	out := make([]string, len(PreferredColumns))
	copy(out, PreferredColumns)
	return out
}

var scopePattern = regexp.MustCompile(`scope\s*\d+(\s*\(market-based\))?`)

// DeriveQuestion builds the analysis question for a data point label.
func DeriveQuestion(label, company string, year int) string {
	return fmt.Sprintf(
		"What was %s's total %s in %d? Rules: report one company-level figure for the year %d, not a segment or subsidiary value.",
		company, strings.ToLower(label), year, year,
	)
}

// DeriveKeywords returns the document pre-filter keywords for a question.
func DeriveKeywords(question string) []string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "revenue"):
		return []string{"revenue", "sale"}
	case strings.Contains(q, "scope"):
		return []string{"scope"}
	default:
		return nil
	}
}

// UnionKeywords merges the keyword sets of all questions, keeping first-seen
// order and dropping duplicates.
func UnionKeywords(questions []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, q := range questions {
		for _, kw := range DeriveKeywords(q) {
			if seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

// Classify maps an analysis question back to its data point label. Revenue
// is checked before scope, so text mentioning both classifies as Revenue.
// Returns LabelUnknown when nothing matches.
func Classify(question string) string {
	q := strings.ToLower(question)
	if strings.Contains(q, "revenue") {
		return LabelRevenue
	}
	m := scopePattern.FindString(q)
	if m == "" {
		return LabelUnknown
	}
	label := "S" + m[1:]
	return strings.Replace(label, marketBasedLower, marketBasedDisplay, 1)
}
