// Package model defines the core data types for the stock insights pipeline.
// These types flow between the LLM gateway, the market data gateway, and the
// orchestrator; keeping them in one leaf package avoids import cycles.
package model

import "strings"

// IntentKind is the closed vocabulary of query intents.
// The LLM gateway validates its structured output against this set, so the
// rest of the pipeline can treat intents as a clean enum regardless of
// model variance.
type IntentKind string

const (
	IntentSingleQuote IntentKind = "single_quote"
	IntentCompare     IntentKind = "compare"
	IntentTopMovers   IntentKind = "top_movers"
	IntentUnknown     IntentKind = "unknown"
)

// ValidIntentKind checks whether a string is one of the known intent kinds.
func ValidIntentKind(s string) bool {
	switch IntentKind(s) {
	case IntentSingleQuote, IntentCompare, IntentTopMovers, IntentUnknown:
		return true
	default:
		return false
	}
}

// Direction selects gainers or losers for a top-movers query.
type Direction string

const (
	DirectionGainers Direction = "gainers"
	DirectionLosers  Direction = "losers"
)

// Intent is the classified purpose of a user query, produced once per query
// by the LLM gateway and never mutated afterward. Re-classification on
// ambiguity produces a new Intent.
type Intent struct {
	Kind IntentKind

	// Terms holds the symbols or company names exactly as extracted from the
	// query, in mention order. Resolution to tickers happens later.
	Terms []string

	// Sector, Direction and Count apply to top-movers intents only.
	Sector    string
	Direction Direction
	Count     int
}

// NormalizeSymbols uppercases, trims and deduplicates a symbol list while
// preserving order (first mention wins).
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Mover is one entry in a ranked top-movers list.
type Mover struct {
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"change_percent"`
}

// Result is the contract returned to the calling layer for one query.
// Response is never empty; partial or total data failure produces an
// explanatory sentence instead.
type Result struct {
	Response  string   `json:"response"`
	Symbols   []string `json:"symbols"`
	TopMovers []Mover  `json:"top_movers,omitempty"`
}
