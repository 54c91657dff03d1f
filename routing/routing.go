// Package routing turns free-text model decisions into members of a closed
// label set. Model output is untrusted control flow: anything that does not
// match an allowed label falls back to the configured default, never an error.
package routing

import "strings"

// Delegation labels used by the database-delegation graph.
const (
	LabelQueryAgent     = "query_agent"
	LabelAnswerDirectly = "answer_directly"
)

// Subject labels used by the subject-classification graph.
const (
	LabelMathAgent    = "math_agent"
	LabelScienceAgent = "science_agent"
	LabelGeneral      = "general"
)

// DelegationLabels is the closed label set for the delegation decision.
var DelegationLabels = []string{LabelQueryAgent, LabelAnswerDirectly}

// SubjectLabels is the closed label set for subject classification.
var SubjectLabels = []string{LabelMathAgent, LabelScienceAgent, LabelGeneral}

// Classify normalizes raw model output and maps it onto one of the allowed
// labels. Matching is case-insensitive and ignores separator characters, so
// "MathAgent", "math-agent" and "math_agent" all land on the same label; an
// exact match wins, otherwise a label contained in the raw text is accepted
// (models tend to answer in a short sentence rather than the bare token).
// Unrecognized input returns fallback.
func Classify(raw string, allowed []string, fallback string) string {
	normalized := canonical(raw)
	if normalized == "" {
		return fallback
	}

	for _, label := range allowed {
		if normalized == canonical(label) {
			return label
		}
	}
	for _, label := range allowed {
		if strings.Contains(normalized, canonical(label)) {
			return label
		}
	}
	return fallback
}

// canonical lower-cases text and strips underscores, hyphens and spaces so
// label spellings compare equal regardless of separator style.
func canonical(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case '_', '-', ' ':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
