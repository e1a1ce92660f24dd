package model

import "fmt"

// Quote is a point-in-time snapshot of one symbol's trading data, optionally
// merged with company profile fields. Numeric fields are pointers because the
// provider may omit any of them; nil means "not reported", which is distinct
// from zero.
type Quote struct {
	Symbol        string   `json:"symbol"`
	CompanyName   string   `json:"company_name,omitempty"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	Open          *float64 `json:"open,omitempty"`
	High          *float64 `json:"high,omitempty"`
	Low           *float64 `json:"low,omitempty"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
	AvgVolume     *int64   `json:"avg_volume,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
}

// FailureKind classifies why a market data fetch failed.
type FailureKind string

const (
	// FailureRateLimited means the provider rejected the call for quota
	// reasons. Transient; retried with backoff before being reported.
	FailureRateLimited FailureKind = "rate_limited"

	// FailureNotFound means the provider does not know the symbol.
	// Permanent; never retried.
	FailureNotFound FailureKind = "not_found"

	// FailureTransport covers network errors, timeouts and unexpected
	// provider responses. Transient.
	FailureTransport FailureKind = "transport"
)

// Reason is the user-facing phrasing for a failure kind, shared by
// synthesis prompts and templated fallback answers.
func (k FailureKind) Reason() string {
	switch k {
	case FailureRateLimited:
		return "the data provider is rate limiting requests"
	case FailureNotFound:
		return "the symbol was not recognized"
	default:
		return "the data provider could not be reached"
	}
}

// FetchError is the typed failure reported by the market data gateway after
// retries are exhausted. Callers handle absence of data per symbol instead of
// aborting the whole query.
type FetchError struct {
	Symbol string
	Kind   FailureKind
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Symbol, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *FetchError) Transient() bool {
	return e.Kind == FailureRateLimited || e.Kind == FailureTransport
}

// FetchResult is one symbol's outcome in a multi-symbol fetch. Exactly one of
// Quote and Err is set.
type FetchResult struct {
	Quote *Quote
	Err   *FetchError
}
