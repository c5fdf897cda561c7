package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lamnguyen/mindtrack/internal/auth"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxGuest  contextKey = "guest"
)

type registerRequest struct {
	Username string       `json:"username"`
	Password string       `json:"password"`
	Profile  auth.Profile `json:"profile"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Guest  bool   `json:"guest,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	if err := s.users.Register(req.Username, req.Password, req.Profile); err != nil {
		if errors.Is(err, auth.ErrExists) {
			respondError(w, http.StatusConflict, "user_exists", "username is taken")
			return
		}
		respondError(w, http.StatusInternalServerError, "register_failed", err.Error())
		return
	}

	token := s.tokens.Issue(req.Username, false)
	s.trackSessions()
	respondJSON(w, http.StatusCreated, tokenResponse{Token: token, UserID: req.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	userID, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	token := s.tokens.Issue(userID, false)
	s.trackSessions()
	respondJSON(w, http.StatusOK, tokenResponse{Token: token, UserID: userID})
}

func (s *Server) handleGuest(w http.ResponseWriter, _ *http.Request) {
	if !s.cfg.AllowGuests {
		respondError(w, http.StatusForbidden, "guests_disabled", "guest access is disabled")
		return
	}
	userID := "guest-" + uuid.NewString()
	token := s.tokens.Issue(userID, true)
	s.trackSessions()
	respondJSON(w, http.StatusOK, tokenResponse{Token: token, UserID: userID, Guest: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.tokens.Revoke(bearerToken(r))
	s.trackSessions()
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// requireAuth resolves the bearer token to a user and stashes it on the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		userID, guest, err := s.tokens.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = context.WithValue(ctx, ctxGuest, guest)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	// Websocket browser clients cannot set headers; allow ?token=.
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func requestUser(r *http.Request) (string, bool) {
	userID, _ := r.Context().Value(ctxUserID).(string)
	guest, _ := r.Context().Value(ctxGuest).(bool)
	return userID, guest
}

func (s *Server) trackSessions() {
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(s.tokens.ActiveCount()))
	}
}
