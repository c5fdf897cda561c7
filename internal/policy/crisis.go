package policy

import "strings"

// RiskLevel classifies how urgent a user message sounds. The assessment is a
// coarse keyword screen used for logging and metrics, not a diagnosis; the
// assistant still handles the message normally.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "normal"
	RiskElevated RiskLevel = "elevated"
	RiskCrisis   RiskLevel = "crisis"
)

var (
	crisisKeywords = []string{
		"suicide", "kill myself", "end my life", "self harm", "self-harm",
		"hurt myself", "want to die", "no reason to live",
	}
	elevatedKeywords = []string{
		"panic attack", "can't sleep", "cannot sleep", "hopeless",
		"worthless", "anxious all the time", "depressed", "overwhelmed",
		"scared all the time",
	}
)

// AssessMessage screens a user message for distress signals.
func AssessMessage(message string) RiskLevel {
	in := strings.ToLower(strings.TrimSpace(message))
	if in == "" {
		return RiskNormal
	}
	for _, kw := range crisisKeywords {
		if strings.Contains(in, kw) {
			return RiskCrisis
		}
	}
	for _, kw := range elevatedKeywords {
		if strings.Contains(in, kw) {
			return RiskElevated
		}
	}
	return RiskNormal
}
