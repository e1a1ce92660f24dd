// Package main provides the CLI tool for the stock insights assistant.
// Useful for trying queries without running the HTTP server:
//
//	go run ./cmd/cli ask "How is AAPL doing today?"
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/config"
	"github.com/c-emman/stock-insights-assistant/internal/llm"
	"github.com/c-emman/stock-insights-assistant/internal/marketdata"
	"github.com/c-emman/stock-insights-assistant/internal/orchestrator"
	"github.com/c-emman/stock-insights-assistant/internal/sector"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stock-insights",
		Short: "Stock insights assistant CLI",
	}

	root.AddCommand(askCmd())
	return root
}

func askCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one natural-language question about stocks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(strings.Join(args, " "), timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-query timeout")
	return cmd
}

func runAsk(query string, timeout time.Duration) error {
	configPath := os.Getenv("STOCK_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Development logger for the CLI: human-readable output
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required (STOCK_FINNHUB_API_KEY)")
	}

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
		}
	}
	if len(clients) == 0 {
		return fmt.Errorf("no LLM provider configured: set llm.openai.api_key or llm.anthropic.api_key")
	}

	orch := orchestrator.New(
		llm.NewGateway(clients, cfg.LLM.RatePerMinute, logger),
		marketdata.New(cfg.Finnhub.APIKey, logger),
		sector.NewReference(),
		orchestrator.Options{
			MaxCompareSymbols:  cfg.Orchestrator.MaxCompareSymbols,
			DefaultMoversCount: cfg.Orchestrator.DefaultMoversCount,
		},
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := orch.HandleQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("answering query: %w", err)
	}

	fmt.Println(result.Response)
	if len(result.Symbols) > 0 {
		fmt.Printf("\nsymbols: %s\n", strings.Join(result.Symbols, ", "))
	}
	return nil
}
