package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lamnguyen/mindtrack/internal/scores"
)

type scoreRecord struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Score      string    `json:"score"`
	Rank       int       `json:"rank"`
	Color      string    `json:"color,omitempty"`
	Content    string    `json:"content,omitempty"`
	TotalGuess string    `json:"total_guess,omitempty"`
}

func toScoreRecords(records []scores.Record) []scoreRecord {
	out := make([]scoreRecord, 0, len(records))
	for _, r := range records {
		out = append(out, scoreRecord{
			ID:         r.ID,
			RecordedAt: r.RecordedAt,
			Score:      r.Score,
			Rank:       scores.Rank(r.Score),
			Color:      scores.Color(r.Score),
			Content:    r.Content,
			TotalGuess: r.TotalGuess,
		})
	}
	return out
}

func (s *Server) userScores(r *http.Request) ([]scores.Record, error) {
	userID, _ := requestUser(r)
	records, err := s.scores.QueryByUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return scores.SortByTime(records), nil
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	records, err := s.userScores(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"scores": toScoreRecords(records)})
}

func (s *Server) handleRecentScores(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "days must be a positive integer")
			return
		}
		days = n
	}

	records, err := s.userScores(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"scores": toScoreRecords(scores.LastNDays(records, days)),
	})
}

func parseDateParam(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return time.Time{}, errors.New("query parameter date is required")
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return d, nil
}

// handleScoresByDate serves callers that expect the date to have data;
// a day with no records is a 404.
func (s *Server) handleScoresByDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	records, err := s.userScores(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	matched, err := scores.ForDate(records, date)
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "no scores recorded on that date")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":   date.Format("2006-01-02"),
		"scores": toScoreRecords(matched),
	})
}

// handleScoresOn is the tolerant flavor: a day with no records is an
// ordinary empty result.
func (s *Server) handleScoresOn(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	records, err := s.userScores(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":   date.Format("2006-01-02"),
		"scores": toScoreRecords(scores.OnDate(records, date)),
	})
}

func (s *Server) handleScoreSeries(w http.ResponseWriter, r *http.Request) {
	records, err := s.userScores(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, scores.ToPlotSeries(records))
}
