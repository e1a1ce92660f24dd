// Package main is the entry point for the stock-insights HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/config"
	"github.com/c-emman/stock-insights-assistant/internal/llm"
	"github.com/c-emman/stock-insights-assistant/internal/marketdata"
	"github.com/c-emman/stock-insights-assistant/internal/orchestrator"
	"github.com/c-emman/stock-insights-assistant/internal/sector"
	"github.com/c-emman/stock-insights-assistant/internal/server"
)

func main() {
	// run() is separate so deferred cleanup executes before os.Exit.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("STOCK_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr; not a real problem.
	defer func() { _ = logger.Sync() }()

	orch, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg, orch, logger)

	// Graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

// buildOrchestrator wires the full pipeline: LLM clients in configured
// order, the market data gateway, and the sector reference data.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	if cfg.Finnhub.APIKey == "" {
		return nil, fmt.Errorf("finnhub.api_key is required (STOCK_FINNHUB_API_KEY)")
	}

	clients, err := buildLLMClients(cfg)
	if err != nil {
		return nil, err
	}

	gateway := llm.NewGateway(clients, cfg.LLM.RatePerMinute, logger)
	market := marketdata.New(cfg.Finnhub.APIKey, logger)

	return orchestrator.New(
		gateway,
		market,
		sector.NewReference(),
		orchestrator.Options{
			MaxCompareSymbols:  cfg.Orchestrator.MaxCompareSymbols,
			DefaultMoversCount: cfg.Orchestrator.DefaultMoversCount,
		},
		logger,
	), nil
}

// buildLLMClients instantiates providers in the configured order, skipping
// any without an API key. At least one must be configured.
func buildLLMClients(cfg *config.Config) ([]llm.Client, error) {
	var clients []llm.Client
	for _, name := range cfg.LLM.ProviderOrder {
		switch name {
		case "openai":
			if cfg.LLM.OpenAI.APIKey != "" {
				clients = append(clients, llm.NewOpenAIClient(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
			}
		case "anthropic":
			if cfg.LLM.Anthropic.APIKey != "" {
				clients = append(clients, llm.NewAnthropicClient(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
			}
		default:
			return nil, fmt.Errorf("unknown LLM provider %q in llm.provider_order", name)
		}
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no LLM provider configured: set llm.openai.api_key or llm.anthropic.api_key")
	}
	return clients, nil
}
