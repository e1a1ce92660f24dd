package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// tickerPattern matches a ticker-like token: uppercase, at most 5
// alphabetic characters. Such tokens pass through symbol resolution without
// a model call.
var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Gateway fronts an ordered list of LLM clients. The first client is
// primary, the rest are fallbacks; a provider failure falls through to the
// next one, and the order is a config change, not a code change
// (llm.provider_order). All calls share one rate limiter to bound API cost.
type Gateway struct {
	clients []Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGateway creates a gateway with an ordered list of LLM clients.
func NewGateway(clients []Client, ratePerMinute int, logger *zap.Logger) *Gateway {
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
	}

	return &Gateway{
		clients: clients,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// ClassifyIntent classifies a raw query into the closed intent vocabulary.
// Malformed structured output gets one retry; if the retry is also
// malformed, the query degrades to IntentUnknown; classification failure
// is recoverable, not fatal. An error is returned only when every provider
// is unreachable, which the orchestrator treats as upstream-unavailable.
func (g *Gateway) ClassifyIntent(ctx context.Context, query string) (*model.Intent, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		for _, client := range g.clients {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}

			intent, err := client.ClassifyIntent(ctx, query)
			if err == nil {
				return intent, nil
			}
			lastErr = err

			if errors.Is(err, ErrMalformedOutput) {
				g.logger.Warn("malformed classification output",
					zap.String("provider", client.ProviderName()),
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
				// Shape problem, not a provider outage; retry the whole
				// pass instead of falling through to the next provider.
				break
			}

			g.logger.Warn("LLM provider failed, trying next",
				zap.String("provider", client.ProviderName()),
				zap.Error(err),
			)
		}
	}

	if errors.Is(lastErr, ErrMalformedOutput) {
		g.logger.Warn("classification retries exhausted, degrading to unknown")
		return &model.Intent{Kind: model.IntentUnknown}, nil
	}
	return nil, fmt.Errorf("all LLM providers failed: %w", lastErr)
}

// ResolveSymbols maps extracted terms to ticker symbols. Ticker-like tokens
// pass through unchanged with no model call; the remaining terms are
// batch-mapped by the model. Terms the model cannot map are returned in
// dropped, not silently discarded; the orchestrator reports them. The
// result is uppercase, deduplicated and order-preserving.
func (g *Gateway) ResolveSymbols(ctx context.Context, terms []string) (resolved []string, dropped []string, err error) {
	var needsLookup []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || tickerPattern.MatchString(t) {
			continue
		}
		needsLookup = append(needsLookup, t)
	}

	var mapping map[string]string
	if len(needsLookup) > 0 {
		mapping, err = g.mapNames(ctx, needsLookup)
		if err != nil {
			// Best-effort resolution: the unmapped terms are dropped and
			// reported rather than failing the query.
			g.logger.Warn("symbol resolution call failed", zap.Error(err))
			mapping = nil
		}
	}

	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if tickerPattern.MatchString(t) {
			out = append(out, t)
			continue
		}

		ticker := strings.ToUpper(strings.TrimSpace(mapping[t]))
		if tickerPattern.MatchString(ticker) {
			out = append(out, ticker)
			continue
		}
		dropped = append(dropped, t)
	}

	return model.NormalizeSymbols(out), dropped, nil
}

// Synthesize produces the final prose answer from structured fetch results,
// falling back through providers like classification does. A total failure
// returns an error; the orchestrator then builds a templated answer instead.
func (g *Gateway) Synthesize(ctx context.Context, in *SynthesisInput) (string, error) {
	var lastErr error

	for _, client := range g.clients {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		text, err := client.Synthesize(ctx, in)
		if err == nil {
			return text, nil
		}
		lastErr = err

		g.logger.Warn("synthesis failed, trying next provider",
			zap.String("provider", client.ProviderName()),
			zap.Error(err),
		)
	}

	return "", fmt.Errorf("all LLM providers failed: %w", lastErr)
}

func (g *Gateway) mapNames(ctx context.Context, names []string) (map[string]string, error) {
	var lastErr error

	for _, client := range g.clients {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		mapping, err := client.MapSymbols(ctx, names)
		if err == nil {
			return mapping, nil
		}
		lastErr = err

		g.logger.Warn("symbol mapping failed, trying next provider",
			zap.String("provider", client.ProviderName()),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("all LLM providers failed: %w", lastErr)
}
