package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// intentToolName is the tool both providers call to return structured
// classification output. Tool calling gives us clean JSON instead of
// parsing free-form text.
const intentToolName = "submit_intent"

const classifySystemPrompt = `You are a query classifier for a stock insights assistant.
Classify the user's question into exactly one intent and extract its entities,
then call the submit_intent tool with the result.

Intents:
- single_quote: the user asks about one stock's current state
- compare: the user asks to compare two or more stocks
- top_movers: the user asks for the biggest gainers or losers, usually within a sector
- unknown: the question is not about stocks, or names no recognizable stock, company, or sector

Rules:
- "symbols" lists ticker symbols or company names exactly as mentioned, in order of mention.
- "sector" is only set for top_movers (e.g. technology, finance, healthcare, energy, consumer).
- "direction" is "losers" only when the user asks about declines; otherwise "gainers".
- "count" is the number of results requested, or 0 if the user didn't say.
- When in doubt, classify as unknown rather than guessing.`

const resolveSystemPrompt = `You map company names to stock ticker symbols.
For each name, reply with the company's most likely primary listing ticker on a US exchange.
Respond with a single JSON object mapping each input name to its ticker, e.g.
{"Apple": "AAPL", "Ford Motor Company": "F"}.
If you cannot identify a company, map its name to an empty string.
Output JSON only, no other text.`

const synthesizeSystemPrompt = `You are a stock insights assistant. Write a concise 2-4 sentence answer
to the user's question from the structured data below.

Rules:
- Use the concrete numbers given (prices, percent changes) rather than vague language.
- If any symbols are listed as unavailable or any terms could not be matched to a ticker, say so explicitly; never silently omit them.
- Do not invent data that is not in the input.
- Plain prose only: no markdown, no bullet points.`

// intentProperties is the JSON schema for submit_intent's arguments, shared
// by both providers (OpenAI wants the full schema object, Anthropic just the
// properties map).
var intentProperties = map[string]interface{}{
	"intent": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"single_quote", "compare", "top_movers", "unknown"},
		"description": "The classified intent of the query.",
	},
	"symbols": map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Ticker symbols or company names mentioned, in order of mention.",
	},
	"sector": map[string]interface{}{
		"type":        "string",
		"description": "Sector for top_movers queries (e.g. technology, finance, energy).",
	},
	"direction": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"gainers", "losers"},
		"description": "Whether the user asked for gainers or losers.",
	},
	"count": map[string]interface{}{
		"type":        "integer",
		"description": "Number of results requested, 0 if unspecified.",
	},
}

// intentPayload is the wire shape of the submit_intent arguments.
type intentPayload struct {
	Intent    string   `json:"intent"`
	Symbols   []string `json:"symbols"`
	Sector    string   `json:"sector"`
	Direction string   `json:"direction"`
	Count     int      `json:"count"`
}

// parseIntent validates raw tool-call JSON against the closed vocabulary.
// This is the schema boundary that lets the rest of the pipeline treat
// Intent as a clean variant regardless of model variance.
func parseIntent(raw []byte) (*model.Intent, error) {
	var p intentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if !model.ValidIntentKind(p.Intent) {
		return nil, fmt.Errorf("%w: intent %q outside vocabulary", ErrMalformedOutput, p.Intent)
	}

	direction := model.Direction(p.Direction)
	switch direction {
	case "", model.DirectionGainers:
		direction = model.DirectionGainers
	case model.DirectionLosers:
	default:
		return nil, fmt.Errorf("%w: direction %q outside vocabulary", ErrMalformedOutput, p.Direction)
	}

	if p.Count < 0 {
		p.Count = 0
	}

	terms := make([]string, 0, len(p.Symbols))
	for _, s := range p.Symbols {
		s = strings.TrimSpace(s)
		if s != "" {
			terms = append(terms, s)
		}
	}

	return &model.Intent{
		Kind:      model.IntentKind(p.Intent),
		Terms:     terms,
		Sector:    strings.TrimSpace(p.Sector),
		Direction: direction,
		Count:     p.Count,
	}, nil
}

// buildResolvePrompt lists the names to map, one per line, in input order.
func buildResolvePrompt(names []string) string {
	var sb strings.Builder
	sb.WriteString("Company names:\n")
	for _, n := range names {
		sb.WriteString("- ")
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	return sb.String()
}

// buildSynthesisPrompt renders the structured fetch results as the user
// message for the synthesis call. Rendering is deterministic: fields appear
// in a fixed order and slices are emitted in the order given.
func buildSynthesisPrompt(in *SynthesisInput) string {
	var sb strings.Builder

	switch in.Intent.Kind {
	case model.IntentCompare:
		sb.WriteString("The user asked to compare stocks.\n")
	case model.IntentTopMovers:
		fmt.Fprintf(&sb, "The user asked for the top %s in the %s sector.\n", in.Intent.Direction, in.Sector)
	default:
		sb.WriteString("The user asked how a stock is doing.\n")
	}

	for _, q := range in.Quotes {
		sb.WriteString("\n")
		sb.WriteString(formatQuote(q))
	}

	if len(in.Movers) > 0 {
		sb.WriteString("\nRanked movers (percent change):\n")
		for i, m := range in.Movers {
			fmt.Fprintf(&sb, "%d. %s %s%%\n", i+1, m.Symbol, formatFloat(m.ChangePercent))
		}
	}

	if len(in.Failures) > 0 {
		sb.WriteString("\nNo data could be obtained for:\n")
		for _, f := range in.Failures {
			fmt.Fprintf(&sb, "- %s (%s)\n", f.Symbol, f.Kind.Reason())
		}
	}

	if len(in.Unresolved) > 0 {
		sb.WriteString("\nMentioned by the user but not matched to any ticker:\n")
		for _, term := range in.Unresolved {
			fmt.Fprintf(&sb, "- %s\n", term)
		}
	}

	return sb.String()
}

// formatQuote renders one quote as a compact field list, skipping fields the
// provider omitted.
func formatQuote(q *model.Quote) string {
	var sb strings.Builder
	sb.WriteString(q.Symbol)
	if q.CompanyName != "" {
		fmt.Fprintf(&sb, " (%s)", q.CompanyName)
	}
	sb.WriteString(":")

	writeField(&sb, "price", q.CurrentPrice)
	writeField(&sb, "change", q.Change)
	writeField(&sb, "change_pct", q.ChangePercent)
	writeField(&sb, "open", q.Open)
	writeField(&sb, "high", q.High)
	writeField(&sb, "low", q.Low)
	writeField(&sb, "prev_close", q.PreviousClose)
	if q.Volume != nil {
		fmt.Fprintf(&sb, " volume=%d", *q.Volume)
	}
	if q.AvgVolume != nil {
		fmt.Fprintf(&sb, " avg_volume=%d", *q.AvgVolume)
	}
	if q.MarketCap != nil {
		fmt.Fprintf(&sb, " market_cap=%s", formatFloat(*q.MarketCap))
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeField(sb *strings.Builder, name string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(sb, " %s=%s", name, formatFloat(*v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON output.
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
