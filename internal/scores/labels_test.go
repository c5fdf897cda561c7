package scores

import "testing"

func TestRankOrdersLabelsWorstToBest(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"kém", 1},
		{"trung bình", 2},
		{"khá", 3},
		{"tốt", 4},
		{"KÉM", 1},
		{"Trung Bình", 2},
		{"  tốt  ", 4},
		{"excellent", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := Rank(tc.label); got != tc.want {
			t.Fatalf("Rank(%q) = %d, want %d", tc.label, got, tc.want)
		}
	}
}

func TestColorMapping(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"kém", "red"},
		{"trung bình", "orange"},
		{"khá", "yellow"},
		{"tốt", "green"},
		{"unknown", ""},
	}
	for _, tc := range cases {
		if got := Color(tc.label); got != tc.want {
			t.Fatalf("Color(%q) = %q, want %q", tc.label, got, tc.want)
		}
	}
}
