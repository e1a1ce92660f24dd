// Package llm provides a provider-agnostic interface for the two language
// model calls in the query pipeline: structured intent extraction from free
// text, and natural-language response generation from structured market
// data. Both OpenAI and Anthropic implement the Client interface, allowing
// the gateway to fall back from one to the other.
package llm

import (
	"context"
	"errors"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// ErrMalformedOutput marks a model reply whose structured content did not
// validate against the expected shape. It is recoverable: the gateway
// retries classification once, then degrades to IntentUnknown instead of
// failing the pipeline.
var ErrMalformedOutput = errors.New("malformed model output")

// SynthesisInput carries the structured fetch results the model turns into
// prose. Quotes preserve the order symbols were resolved in; Failures lists
// symbols that yielded no data, and Unresolved lists query terms that never
// mapped to a ticker at all. Both must be acknowledged in the answer.
type SynthesisInput struct {
	Intent     *model.Intent
	Sector     string
	Quotes     []*model.Quote
	Failures   []*model.FetchError
	Movers     []model.Mover
	Unresolved []string
}

// Client is one LLM provider. Implementations construct prompts
// deterministically; given the same input, the request content is
// byte-identical; only the model's reply varies, and that variance is
// absorbed by shape validation.
type Client interface {
	// ClassifyIntent extracts the query's intent and entities as a value of
	// the closed Intent vocabulary. Shape violations return
	// ErrMalformedOutput (wrapped); other errors are provider failures.
	ClassifyIntent(ctx context.Context, query string) (*model.Intent, error)

	// MapSymbols maps company names to their most likely primary-listing
	// ticker. Best effort: a wrong mapping is caught downstream when the
	// market data gateway reports not-found.
	MapSymbols(ctx context.Context, names []string) (map[string]string, error)

	// Synthesize produces a 2-4 sentence natural-language answer from
	// structured fetch results.
	Synthesize(ctx context.Context, in *SynthesisInput) (string, error)

	ProviderName() string
	ModelName() string
}
