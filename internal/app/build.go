package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/lamnguyen/mindtrack/internal/assistant"
	"github.com/lamnguyen/mindtrack/internal/auth"
	"github.com/lamnguyen/mindtrack/internal/config"
	"github.com/lamnguyen/mindtrack/internal/engine"
	"github.com/lamnguyen/mindtrack/internal/httpapi"
	"github.com/lamnguyen/mindtrack/internal/memory"
	"github.com/lamnguyen/mindtrack/internal/observability"
	"github.com/lamnguyen/mindtrack/internal/retriever"
	"github.com/lamnguyen/mindtrack/internal/scores"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Tokens  *auth.TokenManager
	Engine  *engine.Engine
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.ConversationPath)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}
	scoreStore, err := scores.NewStore(ctx, cfg.DatabaseURL, cfg.ScoresPath)
	if err != nil {
		_ = memoryStore.Close()
		return nil, fmt.Errorf("score store init failed: %w", err)
	}

	users, err := auth.NewUserStore(cfg.UsersPath)
	if err != nil {
		_ = scoreStore.Close()
		_ = memoryStore.Close()
		return nil, fmt.Errorf("user store init failed: %w", err)
	}

	ret, err := retriever.New(ctx, cfg.KnowledgeCorpusPath, retriever.NewHashEmbedder())
	if err != nil {
		_ = scoreStore.Close()
		_ = memoryStore.Close()
		return nil, fmt.Errorf("knowledge retriever init failed: %w", err)
	}

	adapter, err := assistant.NewAdapter(assistant.Config{
		Mode:      cfg.AssistantMode,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AssistantModel,
		MaxTokens: int64(cfg.AssistantMaxTokens),
	})
	if err != nil {
		_ = scoreStore.Close()
		_ = memoryStore.Close()
		return nil, fmt.Errorf("assistant adapter init failed: %w", err)
	}

	eng := engine.New(memoryStore, scoreStore, ret, adapter, metrics, engine.Options{
		TurnTimeout: cfg.TurnTimeout,
		TokenBudget: cfg.MemoryTokenBudget,
	})

	tokens := auth.NewTokenManager(cfg.TokenInactivityTTL)
	api := httpapi.New(cfg, users, tokens, eng, scoreStore, metrics)

	cleanup := func() error {
		var errs []string
		if err := scoreStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := memoryStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Tokens:  tokens,
		Engine:  eng,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
