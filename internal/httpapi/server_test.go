package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lamnguyen/mindtrack/internal/assistant"
	"github.com/lamnguyen/mindtrack/internal/auth"
	"github.com/lamnguyen/mindtrack/internal/config"
	"github.com/lamnguyen/mindtrack/internal/engine"
	"github.com/lamnguyen/mindtrack/internal/memory"
	"github.com/lamnguyen/mindtrack/internal/scores"
)

type stubRetriever struct{}

func (stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]string, error) {
	return []string{"persistent worry is a common anxiety symptom"}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	users, err := auth.NewUserStore(filepath.Join(dir, "users.yaml"))
	if err != nil {
		t.Fatalf("NewUserStore() error = %v", err)
	}
	memStore, err := memory.NewFileStore(filepath.Join(dir, "conversations.json"))
	if err != nil {
		t.Fatalf("NewFileStore(memory) error = %v", err)
	}
	scoreStore, err := scores.NewFileStore(filepath.Join(dir, "scores.json"))
	if err != nil {
		t.Fatalf("NewFileStore(scores) error = %v", err)
	}

	eng := engine.New(memStore, scoreStore, stubRetriever{}, assistant.NewMockAdapter(), nil, engine.Options{})
	cfg := config.Config{AllowGuests: true, AllowAnyOrigin: true}
	srv := New(cfg, users, auth.NewTokenManager(time.Minute), eng, scoreStore, nil)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, url, token string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if out != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerAndLogin(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/v1/auth/register", "", map[string]any{
		"username": username,
		"password": "pw",
		"profile":  map[string]any{"name": "Alice", "age": 29},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var tok tokenResponse
	decodeBody(t, resp, &tok)
	if tok.Token == "" {
		t.Fatalf("register returned empty token")
	}
	return tok.Token
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestChatRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/chat", "", map[string]any{"message": "hi"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var errBody errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Code != "unauthorized" {
		t.Fatalf("code = %q, want unauthorized", errBody.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	registerAndLogin(t, ts, "alice")

	resp := postJSON(t, ts.URL+"/v1/auth/login", "", map[string]any{
		"username": "alice", "password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestDuplicateRegisterConflicts(t *testing.T) {
	ts := newTestServer(t)
	registerAndLogin(t, ts, "alice")

	resp := postJSON(t, ts.URL+"/v1/auth/register", "", map[string]any{
		"username": "alice", "password": "other",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestGuestChat(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/auth/guest", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("guest status = %d, want 200", resp.StatusCode)
	}
	var tok tokenResponse
	decodeBody(t, resp, &tok)
	if !tok.Guest {
		t.Fatalf("guest flag not set")
	}

	chat := postJSON(t, ts.URL+"/v1/chat", tok.Token, map[string]any{"message": "hello"})
	if chat.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", chat.StatusCode)
	}
	var reply chatResponse
	decodeBody(t, chat, &reply)
	if reply.Status != "ok" || reply.Text == "" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestChatFlowRecordsScore(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := postJSON(t, ts.URL+"/v1/chat", token, map[string]any{
		"message": "I feel anxious all the time",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", resp.StatusCode)
	}
	var first chatResponse
	decodeBody(t, resp, &first)
	if first.Status != "ok" {
		t.Fatalf("first turn status = %q", first.Status)
	}

	resp = postJSON(t, ts.URL+"/v1/chat", token, map[string]any{"message": "thanks, goodbye"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("goodbye status = %d, want 200", resp.StatusCode)
	}
	var second chatResponse
	decodeBody(t, resp, &second)
	if second.Status != "ok" {
		t.Fatalf("goodbye turn status = %q", second.Status)
	}

	var listing struct {
		Scores []scoreRecord `json:"scores"`
	}
	getResp := getJSON(t, ts.URL+"/v1/scores", token, &listing)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("scores status = %d, want 200", getResp.StatusCode)
	}
	if len(listing.Scores) != 1 {
		t.Fatalf("len(scores) = %d, want 1", len(listing.Scores))
	}
	rec := listing.Scores[0]
	if rec.Score != "trung bình" || rec.Rank != 2 || rec.Color != "orange" {
		t.Fatalf("record = %+v, want trung bình/2/orange", rec)
	}
}

func TestScoreViews(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	// Record one score through the conversation path.
	postJSON(t, ts.URL+"/v1/chat", token, map[string]any{"message": "goodbye"}).Body.Close()

	today := time.Now().UTC().Format("2006-01-02")

	var recent struct {
		Days   int           `json:"days"`
		Scores []scoreRecord `json:"scores"`
	}
	if resp := getJSON(t, ts.URL+"/v1/scores/recent", token, &recent); resp.StatusCode != http.StatusOK {
		t.Fatalf("recent status = %d, want 200", resp.StatusCode)
	}
	if recent.Days != 7 || len(recent.Scores) != 1 {
		t.Fatalf("recent = %+v", recent)
	}

	var onDay struct {
		Scores []scoreRecord `json:"scores"`
	}
	if resp := getJSON(t, fmt.Sprintf("%s/v1/scores/by-date?date=%s", ts.URL, today), token, &onDay); resp.StatusCode != http.StatusOK {
		t.Fatalf("by-date status = %d, want 200", resp.StatusCode)
	}
	if len(onDay.Scores) != 1 {
		t.Fatalf("by-date len = %d, want 1", len(onDay.Scores))
	}

	// A day with no records: by-date is a 404, on is an empty 200.
	resp := getJSON(t, ts.URL+"/v1/scores/by-date?date=2001-01-01", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty by-date status = %d, want 404", resp.StatusCode)
	}

	var empty struct {
		Scores []scoreRecord `json:"scores"`
	}
	if resp := getJSON(t, ts.URL+"/v1/scores/on?date=2001-01-01", token, &empty); resp.StatusCode != http.StatusOK {
		t.Fatalf("empty on status = %d, want 200", resp.StatusCode)
	}
	if len(empty.Scores) != 0 {
		t.Fatalf("empty on len = %d, want 0", len(empty.Scores))
	}

	var series scores.PlotSeries
	if resp := getJSON(t, ts.URL+"/v1/scores/series", token, &series); resp.StatusCode != http.StatusOK {
		t.Fatalf("series status = %d, want 200", resp.StatusCode)
	}
	if len(series.Ranks) != 1 || series.Ranks[0] != 2 || series.Colors[0] != "orange" {
		t.Fatalf("series = %+v", series)
	}
}

func TestRecentRejectsBadDays(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")
	resp := getJSON(t, ts.URL+"/v1/scores/recent?days=zero", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "alice")

	resp := postJSON(t, ts.URL+"/v1/auth/logout", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/chat", token, map[string]any{"message": "hi"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d, want 401", resp.StatusCode)
	}
}
