package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ai-trader/internal/agent"
	"ai-trader/internal/interfaces"
	"ai-trader/internal/ledger"
	"ai-trader/internal/llm/claude"
	"ai-trader/internal/llm/llmobs"
	"ai-trader/internal/llm/noop"
	"ai-trader/internal/llm/openai"
	"ai-trader/internal/logger"
	"ai-trader/internal/market"
	"ai-trader/internal/runtimeenv"
	"ai-trader/internal/sessionlog"
	"ai-trader/internal/store"
	"ai-trader/internal/tools"
	"ai-trader/internal/tools/toolobs"
	"ai-trader/internal/trace"
	"ai-trader/internal/types"
)

// initializeSystem initializes the logger and tracer.
func initializeSystem() error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads and validates the run configuration.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips session logs past the configured retention.
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn(ctx, "Invalid TRADER_LOG_RETENTION_DAYS, skipping log retention", "value", v, "error", err)
			return
		}
		if err := sessionlog.CompressOlder(cfg.DataDir, n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// buildDeps wires every collaborator the runners share.
func buildDeps(ctx context.Context, cfg *store.Config) (agent.Deps, error) {
	history := loadHistory(ctx, cfg)

	return agent.Deps{
		Cfg:      cfg,
		Ledger:   ledger.NewStore(cfg.DataDir),
		Env:      runtimeenv.NewStore(cfg.DataDir),
		Recorder: market.NewTracker(cfg.DataDir),
		Tools:    buildToolExecutor(ctx, cfg),
		History:  history,
		NewModel: func(basemodel string) interfaces.ModelClient {
			return buildModelClient(ctx, cfg, basemodel)
		},
	}, nil
}

func loadHistory(ctx context.Context, cfg *store.Config) *market.History {
	symbol := cfg.Agent.DefaultSymbols[0]
	path := cfg.HistoryFile
	if path == "" {
		path = filepath.Join(cfg.DataDir, "history", symbol+"_1d.jsonl")
	}
	h, err := market.LoadHistory(path, symbol)
	if err != nil {
		logger.Warn(ctx, "Price history unavailable, prompts will omit prices", "path", path, "error", err)
		return market.EmptyHistory(symbol)
	}
	return h
}

// buildModelClient selects the model provider, with observability wrapped
// around whichever one is chosen.
func buildModelClient(ctx context.Context, cfg *store.Config, basemodel string) interfaces.ModelClient {
	var client interfaces.ModelClient
	switch strings.ToUpper(cfg.LLM.Provider) {
	case "OPENAI":
		client = openai.NewClient(cfg, basemodel)
	case "CLAUDE":
		client = claude.NewClient(cfg, basemodel)
	default:
		client = noop.NewClient()
		logger.Warn(ctx, "No LLM provider configured - using noop client (sessions end immediately)")
	}
	return llmobs.Wrap(client)
}

// buildToolExecutor binds the configured endpoints to their descriptors.
func buildToolExecutor(ctx context.Context, cfg *store.Config) interfaces.ToolExecutor {
	ts := make([]tools.Tool, 0, len(cfg.Tools.Endpoints))
	for name, url := range cfg.Tools.Endpoints {
		ts = append(ts, tools.Tool{Descriptor: builtinDescriptor(name), URL: url})
	}
	if len(ts) == 0 {
		logger.Warn(ctx, "No tool endpoints configured - model runs without tools")
	}
	timeout := time.Duration(cfg.Tools.TimeoutSeconds) * time.Second
	return toolobs.Wrap(tools.NewHTTPExecutor(timeout, ts))
}

func builtinDescriptor(name string) types.ToolDescriptor {
	switch name {
	case "get_price":
		return types.ToolDescriptor{
			Name:        name,
			Description: "Fetch the latest price and recent OHLCV context for a symbol.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{"type": "string"},
					"date":   map[string]any{"type": "string"},
				},
				"required": []string{"symbol"},
			},
		}
	case "trade":
		return types.ToolDescriptor{
			Name:        name,
			Description: "Execute a market order. Side is buy or sell; amount is the base quantity.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"side":   map[string]any{"type": "string", "enum": []string{"buy", "sell"}},
					"symbol": map[string]any{"type": "string"},
					"amount": map[string]any{"type": "number"},
				},
				"required": []string{"side", "symbol", "amount"},
			},
		}
	default:
		return types.ToolDescriptor{
			Name:        name,
			Description: "External tool endpoint " + name + ".",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		}
	}
}
