// Package engine runs conversation turns: it loads a user's memory,
// asks the assistant adapter for a reply with the retrieval and scoring
// capabilities attached, and persists the exchange.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lamnguyen/mindtrack/internal/assistant"
	"github.com/lamnguyen/mindtrack/internal/memory"
	"github.com/lamnguyen/mindtrack/internal/observability"
	"github.com/lamnguyen/mindtrack/internal/policy"
	"github.com/lamnguyen/mindtrack/internal/retriever"
	"github.com/lamnguyen/mindtrack/internal/scores"
)

// ErrUpstream means the assistant could not produce a reply. The turn is
// aborted and nothing is written to conversation memory.
var ErrUpstream = errors.New("assistant upstream failure")

// ErrPersistence means a reply was produced but saving the exchange
// failed. Callers still have a usable reply and should surface it.
var ErrPersistence = errors.New("conversation persistence failure")

const (
	defaultTurnTimeout = 60 * time.Second
	defaultTokenBudget = 3000
	defaultRetrieveK   = 3
)

// Engine drives one conversation turn at a time per user.
type Engine struct {
	memory    memory.Store
	scores    scores.Store
	retriever retriever.Retriever
	adapter   assistant.Adapter
	metrics   *observability.Metrics

	turnTimeout time.Duration
	tokenBudget int

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// Options tune turn execution. Zero values fall back to defaults.
type Options struct {
	TurnTimeout time.Duration
	TokenBudget int
}

func New(mem memory.Store, sc scores.Store, ret retriever.Retriever, adapter assistant.Adapter, metrics *observability.Metrics, opts Options) *Engine {
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = defaultTurnTimeout
	}
	if opts.TokenBudget == 0 {
		opts.TokenBudget = defaultTokenBudget
	}
	return &Engine{
		memory:      mem,
		scores:      sc,
		retriever:   ret,
		adapter:     adapter,
		metrics:     metrics,
		turnTimeout: opts.TurnTimeout,
		tokenBudget: opts.TokenBudget,
		inFlight:    make(map[string]*sync.Mutex),
	}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.inFlight[userID]
	if !ok {
		lk = &sync.Mutex{}
		e.inFlight[userID] = lk
	}
	return lk
}

// Respond runs one full turn for userID. At most one turn per user runs
// at a time; concurrent calls serialize on a per-user lock.
//
// On ErrUpstream the returned text is empty and memory is untouched. On
// ErrPersistence the returned text is still the assistant's reply.
func (e *Engine) Respond(ctx context.Context, userID, profile, message string) (string, error) {
	lk := e.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	started := time.Now()
	turnCtx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()

	if risk := policy.AssessMessage(message); risk != policy.RiskNormal {
		log.Printf("engine: user %s message risk level %s", userID, risk)
		if e.metrics != nil {
			e.metrics.RiskAssessments.WithLabelValues(string(risk)).Inc()
		}
	}

	history, err := e.memory.Load(turnCtx, userID)
	if err != nil {
		log.Printf("engine: load memory for %s: %v", userID, err)
		history = nil
	}
	history = memory.ClampToBudget(history, e.tokenBudget)

	req := assistant.Request{
		Instruction:  SystemInstruction(profile),
		History:      toMessages(history),
		Message:      message,
		Capabilities: e.capabilities(userID),
	}

	stageStart := time.Now()
	reply, err := e.adapter.Respond(turnCtx, req)
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("generate", time.Since(stageStart))
	}
	if err != nil {
		if e.metrics != nil {
			e.metrics.TurnsTotal.WithLabelValues("upstream_failure").Inc()
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	stageStart = time.Now()
	persistErr := e.persistTurn(turnCtx, userID, history, message, reply.Text)
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("persist", time.Since(stageStart))
		e.metrics.ObserveTurnStage("turn_total", time.Since(started))
	}
	if persistErr != nil {
		log.Printf("engine: persist turn for %s: %v", userID, persistErr)
		if e.metrics != nil {
			e.metrics.TurnsTotal.WithLabelValues("persistence_failure").Inc()
			e.metrics.StoreErrors.WithLabelValues("memory").Inc()
		}
		return reply.Text, fmt.Errorf("%w: %v", ErrPersistence, persistErr)
	}

	if e.metrics != nil {
		e.metrics.TurnsTotal.WithLabelValues("ok").Inc()
		e.metrics.TurnLatency.Observe(time.Since(started).Seconds())
	}
	return reply.Text, nil
}

func (e *Engine) persistTurn(ctx context.Context, userID string, history []memory.Turn, message, reply string) error {
	now := time.Now().UTC()
	userTurn := memory.Turn{Role: memory.RoleUser, Content: message, CreatedAt: now}
	if redacted, changed := policy.RedactPII(message); changed {
		userTurn.Content = redacted
		userTurn.Redacted = true
	}
	turns := append(history, userTurn, memory.Turn{
		Role:      memory.RoleAssistant,
		Content:   reply,
		CreatedAt: now,
	})
	return e.memory.Save(ctx, userID, turns)
}

func toMessages(turns []memory.Turn) []assistant.Message {
	msgs := make([]assistant.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, assistant.Message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

func (e *Engine) capabilities(userID string) []assistant.Capability {
	return []assistant.Capability{
		{
			Name:        assistant.CapabilityKnowledge,
			Description: "Look up reference passages about mental health symptoms, conditions and coping strategies. Use this before answering questions about the user's described state.",
			Parameters: assistant.ObjectSchema(map[string]any{
				"query": assistant.StringProperty("What to look up, phrased as a short search query."),
				"k":     assistant.IntegerProperty("How many passages to return. Optional."),
			}, "query"),
			Invoke: e.invokeKnowledge,
		},
		{
			Name:        assistant.CapabilityScore,
			Description: "Record the user's mental health score for this conversation. Score must be one of: kém, trung bình, khá, tốt. Call this once, when the conversation is wrapping up.",
			Parameters: assistant.ObjectSchema(map[string]any{
				"score":       assistant.StringProperty("Overall score label: kém, trung bình, khá or tốt."),
				"content":     assistant.StringProperty("Short summary of what the user reported."),
				"total_guess": assistant.StringProperty("Your overall read of the user's condition."),
			}, "score", "content", "total_guess"),
			Invoke: func(ctx context.Context, args map[string]any) (string, error) {
				return e.invokeScore(ctx, userID, args)
			},
		},
	}
}

func (e *Engine) invokeKnowledge(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", errors.New("query is required")
	}
	k := defaultRetrieveK
	if f, ok := args["k"].(float64); ok && f > 0 {
		k = int(f)
	}
	start := time.Now()
	passages, err := e.retriever.Retrieve(ctx, query, k)
	if e.metrics != nil {
		e.metrics.ObserveTurnStage("retrieve", time.Since(start))
		e.metrics.CapabilityCalls.WithLabelValues(assistant.CapabilityKnowledge, outcome(err)).Inc()
	}
	if err != nil {
		return "", err
	}
	if len(passages) == 0 {
		return "no reference passages matched", nil
	}
	return strings.Join(passages, "\n\n"), nil
}

func (e *Engine) invokeScore(ctx context.Context, userID string, args map[string]any) (string, error) {
	label, _ := args["score"].(string)
	if strings.TrimSpace(label) == "" {
		err := errors.New("score is required")
		if e.metrics != nil {
			e.metrics.CapabilityCalls.WithLabelValues(assistant.CapabilityScore, "error").Inc()
		}
		return "", err
	}
	content, _ := args["content"].(string)
	totalGuess, _ := args["total_guess"].(string)

	// The append must land even if the caller disconnects mid-turn.
	// Keep the turn deadline but drop the caller's cancellation.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.turnTimeout)
	defer cancel()

	err := e.scores.Append(appendCtx, scores.Record{
		UserID:     userID,
		Score:      label,
		Content:    content,
		TotalGuess: totalGuess,
	})
	if e.metrics != nil {
		e.metrics.CapabilityCalls.WithLabelValues(assistant.CapabilityScore, outcome(err)).Inc()
	}
	if err != nil {
		log.Printf("engine: append score for %s: %v", userID, err)
		if e.metrics != nil {
			e.metrics.StoreErrors.WithLabelValues("scores").Inc()
		}
		return "", fmt.Errorf("record score: %w", err)
	}
	return "score recorded", nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
