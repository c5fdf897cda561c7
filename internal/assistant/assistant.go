// Package assistant bridges the conversation engine with the generation
// capability. The engine hands each turn's context and a fixed set of named
// capabilities to an Adapter; the adapter decides at runtime which
// capabilities to invoke, feeds their outputs back into generation, and
// returns the final reply text.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is one prior transcript entry, oldest first.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Capability is a named callable handed to the adapter for one turn.
// Invocations are synchronous within the turn; errors surface to the model
// as failed capability results, not as turn failures.
type Capability struct {
	Name        string
	Description string
	Parameters  map[string]any
	Invoke      func(ctx context.Context, args map[string]any) (string, error)
}

// Request carries everything the adapter needs for one turn.
type Request struct {
	Instruction  string
	History      []Message
	Message      string
	Capabilities []Capability
}

// Reply is the final assistant output for a turn.
type Reply struct {
	Text string
}

// Adapter drives the generation capability for one turn.
type Adapter interface {
	Respond(ctx context.Context, req Request) (Reply, error)
}

// Config controls adapter construction.
type Config struct {
	Mode      string
	APIKey    string
	Model     string
	MaxTokens int64
	MaxRounds int
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewAnthropicAdapter(cfg), nil
		}
		return NewMockAdapter(), nil
	case "anthropic":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("anthropic API key is required for anthropic mode")
		}
		return NewAnthropicAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported assistant adapter mode %q", cfg.Mode)
	}
}
