// Package sector holds the curated reference data for top-movers queries:
// a fixed mapping from sector name to a list of representative ticker
// symbols. The set is loaded once at startup and never mutated, so it is
// safe for unsynchronized concurrent reads.
package sector

import (
	"sort"
	"strings"
)

// Reference is the immutable sector → symbols mapping.
type Reference struct {
	sectors map[string][]string
	aliases map[string]string
	names   []string
}

// NewReference builds the curated default reference set. There is
// deliberately no write path; sector membership changes are a code change,
// not a runtime operation.
func NewReference() *Reference {
	sectors := map[string][]string{
		"technology": {
			"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "AVGO", "ORCL",
			"CRM", "ADBE", "AMD", "INTC", "CSCO", "IBM", "QCOM", "TXN",
			"NOW", "INTU",
		},
		"finance": {
			"JPM", "BAC", "WFC", "GS", "MS", "C", "BLK", "SCHW",
			"AXP", "V", "MA", "USB", "PNC", "TFC", "COF", "BK",
			"SPGI", "CME",
		},
		"healthcare": {
			"UNH", "JNJ", "LLY", "PFE", "ABBV", "MRK", "TMO", "ABT",
			"DHR", "BMY", "AMGN", "GILD", "CVS", "ISRG", "MDT", "VRTX",
			"REGN", "ZTS",
		},
		"energy": {
			"XOM", "CVX", "COP", "SLB", "EOG", "MPC", "PSX", "VLO",
			"OXY", "WMB", "KMI", "HES", "HAL", "DVN", "BKR", "FANG",
			"CTRA", "OKE",
		},
		"consumer": {
			"WMT", "PG", "KO", "PEP", "COST", "MCD", "NKE", "SBUX",
			"TGT", "HD", "LOW", "DIS", "TJX", "CL", "KMB", "GIS",
			"MDLZ", "EL",
		},
	}

	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Reference{
		sectors: sectors,
		aliases: map[string]string{
			"tech":       "technology",
			"financials": "finance",
			"banking":    "finance",
			"health":     "healthcare",
			"retail":     "consumer",
		},
		names: names,
	}
}

// Lookup returns the symbol list for a sector. Matching is case-insensitive
// and accepts common aliases ("tech" for "technology"). The returned slice
// must not be modified by callers.
func (r *Reference) Lookup(name string) ([]string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	symbols, ok := r.sectors[key]
	return symbols, ok
}

// Canonical resolves a sector name to its canonical form, or "" if unknown.
func (r *Reference) Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	if _, ok := r.sectors[key]; ok {
		return key
	}
	return ""
}

// Supported returns the canonical sector names, sorted, for user-facing
// error messages.
func (r *Reference) Supported() []string {
	return r.names
}
