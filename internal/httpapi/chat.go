package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lamnguyen/mindtrack/internal/engine"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	userID, guest := requestUser(r)
	text, err := s.runTurn(r.Context(), userID, guest, req.Message)
	if err != nil && !errors.Is(err, engine.ErrPersistence) {
		// Callers get a coarse failure signal only; the detail is logged
		// server-side by the engine.
		respondError(w, http.StatusBadGateway, "chat_failed", "could not produce a reply")
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Status: "ok", Text: text})
}

// runTurn resolves the user's profile and runs one conversation turn.
// A failed reply save is deliberately non-fatal: the reply still goes
// back to the caller.
func (s *Server) runTurn(ctx context.Context, userID string, guest bool, message string) (string, error) {
	profile := ""
	if !guest {
		if p, err := s.users.LoadProfile(userID); err == nil {
			profile = p.Describe()
		}
	}
	return s.engine.Respond(ctx, userID, profile, message)
}
