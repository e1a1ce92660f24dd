package orchestrator

import (
	"fmt"
	"strings"

	"github.com/c-emman/stock-insights-assistant/internal/llm"
	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// Templated answers for the paths where calling the synthesis model is
// either impossible (it just failed) or wasteful (there is nothing for it
// to add). Every function here returns a non-empty sentence.

func clarificationText() string {
	return "I couldn't work out what you're asking about. Please name specific stocks or companies; for example, \"How is AAPL doing?\" or \"Compare AAPL and TSLA\"."
}

func noSymbolText(dropped []string) string {
	if len(dropped) > 0 {
		return fmt.Sprintf("I couldn't match %s to any ticker symbol. Please try again with the exact company name or ticker (e.g. \"How is AAPL doing?\").", quoteList(dropped))
	}
	return "I couldn't identify a stock symbol in your query. Please specify a stock (e.g. \"How is AAPL doing?\")."
}

func fetchFailureText(ferr *model.FetchError) string {
	return fmt.Sprintf("Sorry, I couldn't fetch data for %s: %s. Please try again shortly.", ferr.Symbol, ferr.Kind.Reason())
}

func unresolvedText(terms []string) string {
	return fmt.Sprintf("I couldn't match %s to any ticker symbol.", quoteList(terms))
}

func noDataText(symbols []string) string {
	return fmt.Sprintf("Sorry, no market data is available right now for %s. Please try again shortly.", quoteList(symbols))
}

func unknownSectorText(requested string, supported []string) string {
	return fmt.Sprintf("I don't have reference data for the %q sector. Supported sectors are: %s.", requested, strings.Join(supported, ", "))
}

func noMoversText(sectorName string, direction model.Direction) string {
	return fmt.Sprintf("Sorry, I couldn't find any %s in %s at the moment.", direction, sectorName)
}

// templatedAnswer builds a plain answer straight from the structured data
// when synthesis is unavailable. Less fluent than the model's prose, but it
// carries the same numbers and acknowledges the same failures.
func templatedAnswer(in *llm.SynthesisInput) string {
	var sb strings.Builder

	switch {
	case len(in.Movers) > 0:
		fmt.Fprintf(&sb, "Top %s in %s:", in.Intent.Direction, in.Sector)
		for i, m := range in.Movers {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s (%+.2f%%)", m.Symbol, m.ChangePercent)
		}
		sb.WriteString(".")

	case len(in.Quotes) > 0:
		for i, q := range in.Quotes {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(quoteSentence(q))
		}

	default:
		sb.WriteString("No market data is available for this query right now.")
	}

	if len(in.Failures) > 0 {
		names := make([]string, len(in.Failures))
		for i, f := range in.Failures {
			names[i] = f.Symbol
		}
		fmt.Fprintf(&sb, " No data was available for %s.", quoteList(names))
	}

	if len(in.Unresolved) > 0 {
		sb.WriteString(" ")
		sb.WriteString(unresolvedText(in.Unresolved))
	}

	return sb.String()
}

func quoteSentence(q *model.Quote) string {
	name := q.Symbol
	if q.CompanyName != "" {
		name = fmt.Sprintf("%s (%s)", q.CompanyName, q.Symbol)
	}

	if q.CurrentPrice == nil {
		return fmt.Sprintf("%s: price unavailable.", name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is trading at %.2f", name, *q.CurrentPrice)
	if q.ChangePercent != nil {
		fmt.Fprintf(&sb, " (%+.2f%%)", *q.ChangePercent)
	}
	if q.High != nil && q.Low != nil {
		fmt.Fprintf(&sb, ", day range %.2f-%.2f", *q.Low, *q.High)
	}
	sb.WriteString(".")
	return sb.String()
}

func quoteList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
