package scores

import (
	"sort"
	"time"
)

// PlotSeries holds parallel sequences derived from score records, ascending
// by timestamp, ready for charting.
type PlotSeries struct {
	Times  []time.Time `json:"times"`
	Ranks  []int       `json:"ranks"`
	Colors []string    `json:"colors"`
	Labels []string    `json:"labels"`
}

// SortByTime returns the records sorted ascending by timestamp. The store
// does not require timestamps to be strictly increasing, so reporting always
// sorts before windowing.
func SortByTime(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

// LastNDays windows records to [maxTime - (n-1) days, maxTime] inclusive,
// where maxTime is the latest timestamp in the set. Empty input yields an
// empty, non-nil result.
func LastNDays(records []Record, n int) []Record {
	sorted := SortByTime(records)
	if len(sorted) == 0 || n <= 0 {
		return []Record{}
	}
	maxTime := sorted[len(sorted)-1].RecordedAt
	cutoff := maxTime.AddDate(0, 0, -(n - 1))
	out := make([]Record, 0, len(sorted))
	for _, r := range sorted {
		if !r.RecordedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// OnDate returns the records whose calendar date matches date, ignoring
// time-of-day. An empty result is a valid answer here; aggregate call sites
// use this flavor.
func OnDate(records []Record, date time.Time) []Record {
	dy, dm, dd := date.Date()
	out := make([]Record, 0)
	for _, r := range SortByTime(records) {
		ry, rm, rd := r.RecordedAt.Date()
		if ry == dy && rm == dm && rd == dd {
			out = append(out, r)
		}
	}
	return out
}

// ForDate is the single-date lookup flavor: it guarantees data exists and
// returns ErrNotFound when no record matches the date.
func ForDate(records []Record, date time.Time) ([]Record, error) {
	out := OnDate(records, date)
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// ToPlotSeries builds the plot-ready parallel sequences from the last-7-days
// window of the given records.
func ToPlotSeries(records []Record) PlotSeries {
	window := LastNDays(records, 7)
	series := PlotSeries{
		Times:  make([]time.Time, 0, len(window)),
		Ranks:  make([]int, 0, len(window)),
		Colors: make([]string, 0, len(window)),
		Labels: make([]string, 0, len(window)),
	}
	for _, r := range window {
		series.Times = append(series.Times, r.RecordedAt)
		series.Ranks = append(series.Ranks, Rank(r.Score))
		series.Colors = append(series.Colors, Color(r.Score))
		series.Labels = append(series.Labels, r.Score)
	}
	return series
}
