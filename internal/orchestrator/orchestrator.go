// Package orchestrator coordinates one query end to end: classify the raw
// text, resolve symbols, fetch market data, and synthesize the answer.
// Each query moves through a linear set of stages with no backtracking;
// failures are absorbed at the lowest stage that can still produce a
// coherent answer, and only total LLM unavailability surfaces as an error.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/llm"
	"github.com/c-emman/stock-insights-assistant/internal/model"
	"github.com/c-emman/stock-insights-assistant/internal/sector"
)

// Stage identifies where in the pipeline a query currently is, or where it
// failed.
type Stage string

const (
	StageReceived        Stage = "received"
	StageClassified      Stage = "classified"
	StageSymbolsResolved Stage = "symbols_resolved"
	StageDataFetched     Stage = "data_fetched"
	StageSynthesized     Stage = "synthesized"
	StageCompleted       Stage = "completed"
)

// PipelineError is the single fatal error shape the orchestrator reports.
// The boundary layer converts it to a user-safe message and status code;
// every other failure kind is absorbed into the Result text.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// LLM is the language model gateway surface the orchestrator needs.
type LLM interface {
	ClassifyIntent(ctx context.Context, query string) (*model.Intent, error)
	ResolveSymbols(ctx context.Context, terms []string) (resolved []string, dropped []string, err error)
	Synthesize(ctx context.Context, in *llm.SynthesisInput) (string, error)
}

// MarketData is the market data gateway surface the orchestrator needs.
type MarketData interface {
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
	FetchMany(ctx context.Context, symbols []string) map[string]model.FetchResult
}

// Options bound the per-query cost knobs.
type Options struct {
	// MaxCompareSymbols caps how many symbols a comparison fetches.
	MaxCompareSymbols int
	// DefaultMoversCount is the top-movers count when the query doesn't
	// ask for a specific number.
	DefaultMoversCount int
}

const (
	defaultMaxCompare = 5
	defaultMovers     = 3
	maxMovers         = 10
)

// Orchestrator is the query pipeline coordinator. Each HandleQuery call is
// one independent unit of work; the only shared state is the read-only
// sector reference data.
type Orchestrator struct {
	llm     LLM
	market  MarketData
	sectors *sector.Reference
	opts    Options
	logger  *zap.Logger
}

// New creates an orchestrator. Zero Options fields fall back to defaults.
func New(llmGateway LLM, market MarketData, sectors *sector.Reference, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.MaxCompareSymbols <= 0 {
		opts.MaxCompareSymbols = defaultMaxCompare
	}
	if opts.DefaultMoversCount <= 0 {
		opts.DefaultMoversCount = defaultMovers
	}
	return &Orchestrator{
		llm:     llmGateway,
		market:  market,
		sectors: sectors,
		opts:    opts,
		logger:  logger,
	}
}

// HandleQuery is the entire inbound surface: raw text in, one Result out.
// The Result's Response is never empty; every failure short of total LLM
// unavailability degrades to an explanatory sentence.
func (o *Orchestrator) HandleQuery(ctx context.Context, query string) (*model.Result, error) {
	intent, err := o.llm.ClassifyIntent(ctx, query)
	if err != nil {
		return nil, &PipelineError{Stage: StageClassified, Err: err}
	}

	o.logger.Info("query classified",
		zap.String("intent", string(intent.Kind)),
		zap.Strings("terms", intent.Terms),
	)

	switch intent.Kind {
	case model.IntentSingleQuote:
		return o.handleSingleQuote(ctx, intent)
	case model.IntentCompare:
		return o.handleCompare(ctx, intent)
	case model.IntentTopMovers:
		return o.handleTopMovers(ctx, intent)
	default:
		// No fetch, no synthesis call; a templated clarification is
		// deterministic and saves a model round trip.
		return &model.Result{Response: clarificationText(), Symbols: []string{}}, nil
	}
}

func (o *Orchestrator) handleSingleQuote(ctx context.Context, intent *model.Intent) (*model.Result, error) {
	symbols, dropped, err := o.llm.ResolveSymbols(ctx, intent.Terms)
	if err != nil {
		return nil, &PipelineError{Stage: StageSymbolsResolved, Err: err}
	}
	if len(symbols) == 0 {
		return &model.Result{Response: noSymbolText(dropped), Symbols: []string{}}, nil
	}

	return o.singleQuote(ctx, intent, symbols[0], dropped)
}

// singleQuote fetches one resolved symbol and builds the answer. dropped
// carries query terms that never resolved to a ticker; the answer
// acknowledges them rather than silently omitting them.
func (o *Orchestrator) singleQuote(ctx context.Context, intent *model.Intent, symbol string, dropped []string) (*model.Result, error) {
	quote, err := o.market.FetchQuote(ctx, symbol)
	if err != nil {
		// Fetch failure becomes an explanatory answer naming the symbol
		// and failure kind; it never propagates to the caller. The symbol
		// did resolve, so it is still reported.
		ferr, ok := asFetchError(err)
		if !ok {
			ferr = &model.FetchError{Symbol: symbol, Kind: model.FailureTransport, Err: err}
		}
		o.logger.Warn("quote fetch failed",
			zap.String("symbol", symbol),
			zap.String("kind", string(ferr.Kind)),
		)
		text := fetchFailureText(ferr)
		if len(dropped) > 0 {
			text += " " + unresolvedText(dropped)
		}
		return &model.Result{Response: text, Symbols: []string{symbol}}, nil
	}

	in := &llm.SynthesisInput{
		Intent:     intent,
		Quotes:     []*model.Quote{quote},
		Unresolved: dropped,
	}
	text := o.synthesizeOrFallback(ctx, in)

	return &model.Result{Response: text, Symbols: []string{symbol}}, nil
}

func (o *Orchestrator) handleCompare(ctx context.Context, intent *model.Intent) (*model.Result, error) {
	symbols, dropped, err := o.llm.ResolveSymbols(ctx, intent.Terms)
	if err != nil {
		return nil, &PipelineError{Stage: StageSymbolsResolved, Err: err}
	}

	switch len(symbols) {
	case 0:
		return &model.Result{Response: noSymbolText(dropped), Symbols: []string{}}, nil
	case 1:
		// The comparison intent with one valid name is still answerable;
		// degrade to a single quote rather than erroring. The terms that
		// failed to resolve travel along.
		o.logger.Info("compare degraded to single quote", zap.String("symbol", symbols[0]))
		single := &model.Intent{Kind: model.IntentSingleQuote, Terms: symbols}
		return o.singleQuote(ctx, single, symbols[0], dropped)
	}

	if len(symbols) > o.opts.MaxCompareSymbols {
		symbols = symbols[:o.opts.MaxCompareSymbols]
	}

	results := o.market.FetchMany(ctx, symbols)

	// Partition into successes and failures, preserving resolution order.
	var quotes []*model.Quote
	var succeeded []string
	var failures []*model.FetchError
	for _, s := range symbols {
		r := results[s]
		switch {
		case r.Quote != nil:
			quotes = append(quotes, r.Quote)
			succeeded = append(succeeded, s)
		case r.Err != nil:
			failures = append(failures, r.Err)
		}
	}

	if len(quotes) == 0 {
		// Nothing to say beyond "no data"; short-circuit without a
		// synthesis call for a deterministic failure message.
		return &model.Result{Response: noDataText(symbols), Symbols: []string{}}, nil
	}

	in := &llm.SynthesisInput{
		Intent:     intent,
		Quotes:     quotes,
		Failures:   failures,
		Unresolved: dropped,
	}
	text := o.synthesizeOrFallback(ctx, in)

	return &model.Result{Response: text, Symbols: succeeded}, nil
}

func (o *Orchestrator) handleTopMovers(ctx context.Context, intent *model.Intent) (*model.Result, error) {
	requested := strings.TrimSpace(intent.Sector)
	if requested == "" {
		// "Top gainers today" with no sector mentioned defaults to the
		// technology universe instead of bouncing the query back.
		requested = "technology"
	}

	canonical := o.sectors.Canonical(requested)
	if canonical == "" {
		// Unknown sector never triggers a market data call.
		return &model.Result{
			Response: unknownSectorText(requested, o.sectors.Supported()),
			Symbols:  []string{},
		}, nil
	}

	universe, _ := o.sectors.Lookup(canonical)
	results := o.market.FetchMany(ctx, universe)

	var movers []model.Mover
	for _, s := range universe {
		r := results[s]
		if r.Quote == nil || r.Quote.ChangePercent == nil {
			continue
		}
		movers = append(movers, model.Mover{Symbol: s, ChangePercent: *r.Quote.ChangePercent})
	}

	if len(movers) == 0 {
		return &model.Result{
			Response: noMoversText(canonical, intent.Direction),
			Symbols:  []string{},
		}, nil
	}

	// Rank by change percent: descending for gainers, ascending for losers.
	sort.SliceStable(movers, func(i, j int) bool {
		if intent.Direction == model.DirectionLosers {
			return movers[i].ChangePercent < movers[j].ChangePercent
		}
		return movers[i].ChangePercent > movers[j].ChangePercent
	})

	count := intent.Count
	if count <= 0 {
		count = o.opts.DefaultMoversCount
	}
	if count > maxMovers {
		count = maxMovers
	}
	if count < len(movers) {
		movers = movers[:count]
	}

	symbols := make([]string, len(movers))
	for i, m := range movers {
		symbols[i] = m.Symbol
	}

	in := &llm.SynthesisInput{
		Intent: intent,
		Sector: canonical,
		Movers: movers,
	}
	text := o.synthesizeOrFallback(ctx, in)

	return &model.Result{Response: text, Symbols: symbols, TopMovers: movers}, nil
}

// synthesizeOrFallback asks the LLM gateway for prose and, if synthesis
// fails, builds a templated answer directly from the structured data. The
// user always gets a sentence, never a raw error.
func (o *Orchestrator) synthesizeOrFallback(ctx context.Context, in *llm.SynthesisInput) string {
	text, err := o.llm.Synthesize(ctx, in)
	if err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	o.logger.Warn("synthesis failed, using templated answer", zap.Error(err))
	return templatedAnswer(in)
}

func asFetchError(err error) (*model.FetchError, bool) {
	var ferr *model.FetchError
	ok := errors.As(err, &ferr)
	return ferr, ok
}
