package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lamnguyen/mindtrack/internal/auth"
	"github.com/lamnguyen/mindtrack/internal/config"
	"github.com/lamnguyen/mindtrack/internal/observability"
	"github.com/lamnguyen/mindtrack/internal/scores"
)

// Conversationalist runs one chat turn for a user.
type Conversationalist interface {
	Respond(ctx context.Context, userID, profile, message string) (string, error)
}

type Server struct {
	cfg      config.Config
	users    *auth.UserStore
	tokens   *auth.TokenManager
	engine   Conversationalist
	scores   scores.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, users *auth.UserStore, tokens *auth.TokenManager, eng Conversationalist, scoreStore scores.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		users:   users,
		tokens:  tokens,
		engine:  eng,
		scores:  scoreStore,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot drive a user's chat
				// session if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/auth/register", s.handleRegister)
	r.Post("/v1/auth/login", s.handleLogin)
	r.Post("/v1/auth/guest", s.handleGuest)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/v1/auth/logout", s.handleLogout)
		r.Post("/v1/chat", s.handleChat)
		r.Get("/v1/chat/ws", s.handleChatWS)
		r.Get("/v1/scores", s.handleListScores)
		r.Get("/v1/scores/recent", s.handleRecentScores)
		r.Get("/v1/scores/by-date", s.handleScoresByDate)
		r.Get("/v1/scores/on", s.handleScoresOn)
		r.Get("/v1/scores/series", s.handleScoreSeries)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
