package scores

import "strings"

// The assistant scores on a fixed four-level scale, worst to best. Labels are
// stored as free text and normalized only when read, so unknown labels map to
// rank 0 with no color instead of failing.
const (
	LabelPoor    = "kém"
	LabelAverage = "trung bình"
	LabelNormal  = "khá"
	LabelGood    = "tốt"
)

// Rank maps a score label to its numeric rank 1-4, case-insensitively.
// Labels outside the scale map to 0.
func Rank(label string) int {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelPoor:
		return 1
	case LabelAverage:
		return 2
	case LabelNormal:
		return 3
	case LabelGood:
		return 4
	default:
		return 0
	}
}

// Color maps a score label to its display color, empty for unknown labels.
func Color(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelPoor:
		return "red"
	case LabelAverage:
		return "orange"
	case LabelNormal:
		return "yellow"
	case LabelGood:
		return "green"
	default:
		return ""
	}
}
