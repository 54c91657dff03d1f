package routing

import "testing"

func TestClassifyExactMatch(t *testing.T) {
	got := Classify("query_agent", DelegationLabels, LabelAnswerDirectly)
	if got != LabelQueryAgent {
		t.Errorf("Expected %s, got %s", LabelQueryAgent, got)
	}
}

func TestClassifyCaseAndWhitespace(t *testing.T) {
	got := Classify("  Math_Agent \n", SubjectLabels, LabelGeneral)
	if got != LabelMathAgent {
		t.Errorf("Expected %s, got %s", LabelMathAgent, got)
	}
}

func TestClassifySeparatorVariants(t *testing.T) {
	cases := map[string]string{
		"MathAgent":    LabelMathAgent,
		"ScienceAgent": LabelScienceAgent,
		"General":      LabelGeneral,
		"math-agent":   LabelMathAgent,
		"math agent":   LabelMathAgent,
	}
	for raw, want := range cases {
		got := Classify(raw, SubjectLabels, LabelGeneral)
		if got != want {
			t.Errorf("Classify(%q): expected %s, got %s", raw, want, got)
		}
	}
}

func TestClassifySubstring(t *testing.T) {
	got := Classify(`I will use the "query_agent" for this.`, DelegationLabels, LabelAnswerDirectly)
	if got != LabelQueryAgent {
		t.Errorf("Expected %s, got %s", LabelQueryAgent, got)
	}
}

func TestClassifyFallback(t *testing.T) {
	cases := []string{
		"bogus-label",
		"",
		"   ",
		"I cannot decide",
		"QUERYAGENT2000",
	}
	for _, raw := range cases {
		got := Classify(raw, SubjectLabels, LabelGeneral)
		if got != LabelGeneral {
			t.Errorf("Classify(%q): expected fallback %s, got %s", raw, LabelGeneral, got)
		}
	}
}

func TestClassifyNeverPanicsOnGarbage(t *testing.T) {
	garbage := []string{"\x00\xff", "{\"json\": true}", "query_agent answer_directly"}
	for _, raw := range garbage {
		got := Classify(raw, DelegationLabels, LabelAnswerDirectly)
		found := false
		for _, l := range append(DelegationLabels, LabelAnswerDirectly) {
			if got == l {
				found = true
			}
		}
		if !found {
			t.Errorf("Classify(%q) returned label outside the closed set: %s", raw, got)
		}
	}
}
