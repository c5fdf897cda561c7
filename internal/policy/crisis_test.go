package policy

import "testing"

func TestAssessMessage(t *testing.T) {
	cases := []struct {
		message string
		want    RiskLevel
	}{
		{"", RiskNormal},
		{"I slept well and feel fine today", RiskNormal},
		{"I feel hopeless and can't sleep", RiskElevated},
		{"I had a panic attack at work", RiskElevated},
		{"sometimes I want to die", RiskCrisis},
		{"I keep thinking about self-harm", RiskCrisis},
	}
	for _, tc := range cases {
		if got := AssessMessage(tc.message); got != tc.want {
			t.Fatalf("AssessMessage(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}
