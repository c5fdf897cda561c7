package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Capability names the engine registers; the mock adapter looks them up by
// name the same way the model would.
const (
	CapabilityKnowledge = "health_reference"
	CapabilityScore     = "record_score"
)

// MockAdapter provides deterministic local replies when no generation
// provider is configured. It exercises the retrieval capability on every
// turn and records an average score when the user says goodbye, so the full
// turn pipeline can run without external services.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Respond(ctx context.Context, req Request) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	default:
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{Text: "I am listening. How are you feeling today?"}, nil
	}

	caps := make(map[string]Capability, len(req.Capabilities))
	for _, c := range req.Capabilities {
		caps[c.Name] = c
	}

	text := fmt.Sprintf("I hear you: %s", message)
	if c, ok := caps[CapabilityKnowledge]; ok {
		reference, err := c.Invoke(ctx, map[string]any{"query": message, "k": 1})
		if err == nil && strings.TrimSpace(reference) != "" {
			first := strings.SplitN(reference, "\n", 2)[0]
			text += fmt.Sprintf("\nA reference note that may apply: %s", first)
		}
	}

	if isClosing(message) {
		if c, ok := caps[CapabilityScore]; ok {
			_, err := c.Invoke(ctx, map[string]any{
				"score":       "trung bình",
				"content":     summarize(req),
				"total_guess": "moderate overall condition based on this conversation",
			})
			if err != nil {
				text += "\nI could not save your score this time."
			} else {
				text += "\nI saved today's check-in score. Come back regularly to track how you are doing."
			}
		}
	}

	return Reply{Text: text}, nil
}

func isClosing(message string) bool {
	in := strings.ToLower(message)
	for _, marker := range []string{"goodbye", "bye", "that's all", "tạm biệt"} {
		if strings.Contains(in, marker) {
			return true
		}
	}
	return false
}

func summarize(req Request) string {
	if len(req.History) == 0 {
		return req.Message
	}
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == "user" && strings.TrimSpace(req.History[i].Content) != "" {
			return req.History[i].Content
		}
	}
	return req.Message
}
