// Package marketdata wraps the Finnhub API behind a gateway that normalizes
// provider responses and error conditions into the pipeline's uniform shapes.
// Transient failures (rate limits, transport errors) are retried with
// exponential backoff; unknown symbols fail immediately. After retries are
// exhausted every failure surfaces as a typed *model.FetchError so callers
// can handle absence of data per symbol.
package marketdata

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

const (
	// maxAttempts is the total attempt budget per symbol: the initial call
	// plus two retries.
	maxAttempts = 3

	// initialBackoff is the delay before the first retry; it doubles for
	// each subsequent one (1s, 2s).
	initialBackoff = time.Second

	// maxParallelFetches bounds concurrent Finnhub calls within one
	// multi-symbol fetch so a rate-limited batch doesn't stampede.
	maxParallelFetches = 5
)

// Profile holds the company profile fields Finnhub reports. Merged into
// Quote by FetchQuote; exposed separately for callers that only need the
// profile.
type Profile struct {
	Symbol    string
	Name      string
	Exchange  string
	Industry  string
	MarketCap *float64
}

// Client is the market data gateway.
type Client struct {
	api    api
	logger *zap.Logger

	// sleep is the backoff wait. Injectable so tests can record requested
	// delays instead of actually sleeping.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a gateway backed by the Finnhub API.
func New(apiKey string, logger *zap.Logger) *Client {
	return newWithAPI(newFinnhubAPI(apiKey), logger)
}

func newWithAPI(a api, logger *zap.Logger) *Client {
	return &Client{
		api:    a,
		logger: logger,
		sleep:  sleepContext,
	}
}

// FetchQuote returns the quote for one symbol, merged with company profile
// fields when the profile endpoint succeeds. A profile failure never fails
// the quote; the profile is enrichment, not required data.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	quote, ferr := c.fetchQuoteOnly(ctx, symbol)
	if ferr != nil {
		return nil, ferr
	}

	profile, perr := c.FetchProfile(ctx, symbol)
	if perr != nil {
		c.logger.Debug("profile fetch miss",
			zap.String("symbol", symbol),
			zap.Error(perr),
		)
		return quote, nil
	}

	quote.CompanyName = profile.Name
	quote.MarketCap = profile.MarketCap
	return quote, nil
}

// FetchProfile returns the company profile for one symbol, with the same
// retry policy as quote fetches.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*Profile, error) {
	var profile *Profile
	ferr := c.withRetry(ctx, symbol, func(ctx context.Context) *model.FetchError {
		p, err := c.profileOnce(ctx, symbol)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if ferr != nil {
		return nil, ferr
	}
	return profile, nil
}

// FetchMany fetches quotes for several symbols concurrently and
// independently: one symbol's failure (or its backoff sleeps) never aborts
// or delays the others. The result map has an entry for every input symbol.
// Profiles are skipped here; multi-symbol callers only need trading data.
func (c *Client) FetchMany(ctx context.Context, symbols []string) map[string]model.FetchResult {
	results := make(map[string]model.FetchResult, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallelFetches)

	for _, symbol := range symbols {
		s := symbol
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()

			quote, ferr := c.fetchQuoteOnly(gctx, s)

			mu.Lock()
			defer mu.Unlock()
			if ferr != nil {
				results[s] = model.FetchResult{Err: ferr}
				return nil // per-symbol isolation: never fail the group
			}
			results[s] = model.FetchResult{Quote: quote}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (c *Client) fetchQuoteOnly(ctx context.Context, symbol string) (*model.Quote, *model.FetchError) {
	var quote *model.Quote
	ferr := c.withRetry(ctx, symbol, func(ctx context.Context) *model.FetchError {
		q, err := c.quoteOnce(ctx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	if ferr != nil {
		return nil, ferr
	}
	return quote, nil
}

// withRetry runs one fetch attempt and retries transient failures with
// exponential backoff (1s, then 2s). Non-transient failures and exhausted
// budgets return the last typed error. The backoff sleep honors context
// cancellation, so a cancelled query never sits out a full backoff.
func (c *Client) withRetry(ctx context.Context, symbol string, attempt func(ctx context.Context) *model.FetchError) *model.FetchError {
	backoff := initialBackoff

	for n := 1; ; n++ {
		ferr := attempt(ctx)
		if ferr == nil {
			return nil
		}
		if !ferr.Transient() || n >= maxAttempts {
			return ferr
		}

		c.logger.Warn("transient fetch failure, backing off",
			zap.String("symbol", symbol),
			zap.String("kind", string(ferr.Kind)),
			zap.Int("attempt", n),
			zap.Duration("backoff", backoff),
		)

		if err := c.sleep(ctx, backoff); err != nil {
			return &model.FetchError{Symbol: symbol, Kind: model.FailureTransport, Err: err}
		}
		backoff *= 2
	}
}

func (c *Client) quoteOnce(ctx context.Context, symbol string) (*model.Quote, *model.FetchError) {
	q, resp, err := c.api.quote(ctx, symbol)
	if err != nil {
		return nil, classify(symbol, resp, err)
	}

	// Finnhub answers 200 with an all-zero body for symbols it doesn't
	// know. Treat that as not-found rather than a zero-priced quote.
	if isEmptyQuote(q) {
		return nil, &model.FetchError{Symbol: symbol, Kind: model.FailureNotFound}
	}

	return &model.Quote{
		Symbol:        symbol,
		CurrentPrice:  f64(q.C),
		Change:        f64(q.D),
		ChangePercent: f64(q.Dp),
		High:          f64(q.H),
		Low:           f64(q.L),
		Open:          f64(q.O),
		PreviousClose: f64(q.Pc),
	}, nil
}

func (c *Client) profileOnce(ctx context.Context, symbol string) (*Profile, *model.FetchError) {
	p, resp, err := c.api.profile(ctx, symbol)
	if err != nil {
		return nil, classify(symbol, resp, err)
	}

	// Same convention as quotes: an empty body means unknown symbol.
	if p.GetName() == "" {
		return nil, &model.FetchError{Symbol: symbol, Kind: model.FailureNotFound}
	}

	return &Profile{
		Symbol:    symbol,
		Name:      p.GetName(),
		Exchange:  p.GetExchange(),
		Industry:  p.GetFinnhubIndustry(),
		MarketCap: f64(p.MarketCapitalization),
	}, nil
}

// classify maps a provider error to the gateway's failure taxonomy.
// HTTP 429 is a rate limit; everything else on the transport path (DNS
// failures, timeouts, 5xx) is a transport failure. Both are transient.
func classify(symbol string, resp *http.Response, err error) *model.FetchError {
	kind := model.FailureTransport
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		kind = model.FailureRateLimited
	}
	return &model.FetchError{Symbol: symbol, Kind: kind, Err: err}
}

func isEmptyQuote(q finnhub.Quote) bool {
	return q.GetC() == 0 && q.GetPc() == 0
}

// f64 widens the SDK's float32 pointers, preserving nil for omitted fields.
func f64(p *float32) *float64 {
	if p == nil {
		return nil
	}
	v := float64(*p)
	return &v
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AsFetchError extracts the typed gateway error from an error chain.
func AsFetchError(err error) (*model.FetchError, bool) {
	var ferr *model.FetchError
	ok := errors.As(err, &ferr)
	return ferr, ok
}
