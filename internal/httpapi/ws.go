package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lamnguyen/mindtrack/internal/engine"
)

type wsChatFrame struct {
	Message string `json:"message"`
}

type wsReplyFrame struct {
	Status string `json:"status"`
	Reply  string `json:"reply,omitempty"`
	Code   string `json:"code,omitempty"`
}

// handleChatWS runs the chat loop over a websocket: one {"message"}
// frame in, one {"status","reply"} frame out, strictly in order.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	userID, guest := requestUser(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		var frame wsChatFrame
		if err := json.Unmarshal(data, &frame); err != nil || strings.TrimSpace(frame.Message) == "" {
			s.writeWSFrame(conn, wsReplyFrame{Status: "error", Code: "invalid_frame"})
			continue
		}
		if s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", "message").Inc()
		}

		text, err := s.runTurn(r.Context(), userID, guest, frame.Message)
		if err != nil && !errors.Is(err, engine.ErrPersistence) {
			s.writeWSFrame(conn, wsReplyFrame{Status: "error", Code: "chat_failed"})
			continue
		}
		s.writeWSFrame(conn, wsReplyFrame{Status: "ok", Reply: text})
	}
}

func (s *Server) writeWSFrame(conn *websocket.Conn, frame wsReplyFrame) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(frame); err != nil {
		return
	}
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues("outbound", frame.Status).Inc()
	}
}
