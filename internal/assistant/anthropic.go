package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/lamnguyen/mindtrack/internal/reliability"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 2048
	defaultMaxRounds = 8
	generateAttempts = 3
)

// AnthropicAdapter drives the Anthropic Messages API with capability
// (tool) calling.
type AnthropicAdapter struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	maxRounds int
}

func NewAnthropicAdapter(cfg Config) *AnthropicAdapter {
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	return &AnthropicAdapter{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		maxRounds: maxRounds,
	}
}

// Respond runs the generate/invoke loop: each round the model either yields
// a final text reply or requests capability invocations, whose results are
// fed back into the next round.
func (a *AnthropicAdapter) Respond(ctx context.Context, req Request) (Reply, error) {
	byName := make(map[string]Capability, len(req.Capabilities))
	for _, c := range req.Capabilities {
		byName[c.Name] = c
	}
	tools := buildTools(req.Capabilities)

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)))

	for round := 0; round < a.maxRounds; round++ {
		params := anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			Messages:  messages,
			System:    []anthropic.TextBlockParam{{Text: req.Instruction}},
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		resp, err := a.generate(ctx, params)
		if err != nil {
			return Reply{}, fmt.Errorf("generation request: %w", err)
		}

		var text string
		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text += block.Text
			case "tool_use":
				toolResults = append(toolResults, a.invokeCapability(ctx, byName, block))
			}
		}

		if len(toolResults) == 0 {
			return Reply{Text: text}, nil
		}

		messages = append(messages, resp.ToParam())
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	return Reply{}, fmt.Errorf("capability rounds exceeded (%d)", a.maxRounds)
}

func (a *AnthropicAdapter) invokeCapability(
	ctx context.Context,
	byName map[string]Capability,
	block anthropic.ContentBlockUnion,
) anthropic.ContentBlockParamUnion {
	cap, ok := byName[block.Name]
	if !ok {
		return anthropic.NewToolResultBlock(block.ID, fmt.Sprintf("unknown capability: %s", block.Name), true)
	}

	var args map[string]any
	if len(block.Input) > 0 {
		if err := json.Unmarshal(block.Input, &args); err != nil {
			return anthropic.NewToolResultBlock(block.ID, fmt.Sprintf("invalid capability input: %v", err), true)
		}
	}

	start := time.Now()
	result, err := cap.Invoke(ctx, args)
	if err != nil {
		log.Printf("capability %s failed after %s: %v", cap.Name, time.Since(start), err)
		return anthropic.NewToolResultBlock(block.ID, err.Error(), true)
	}
	return anthropic.NewToolResultBlock(block.ID, result, false)
}

func (a *AnthropicAdapter) generate(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < generateAttempts; attempt++ {
		if attempt > 0 {
			backoff := reliability.ExponentialBackoff(attempt, 200*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := a.client.Messages.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !reliability.IsRetryableGenerationError(err) {
			break
		}
		log.Printf("generation attempt %d failed, retrying: %v", attempt+1, err)
	}
	return nil, lastErr
}

func buildTools(caps []Capability) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(caps))
	for _, c := range caps {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if c.Parameters != nil {
			if props, ok := c.Parameters["properties"]; ok {
				schema.Properties = props
			}
			if req, ok := c.Parameters["required"].([]string); ok {
				schema.Required = req
			}
		}
		tool := anthropic.ToolUnionParamOfTool(schema, c.Name)
		if c.Description != "" {
			tool.OfTool.Description = anthropic.String(c.Description)
		}
		tools = append(tools, tool)
	}
	return tools
}
