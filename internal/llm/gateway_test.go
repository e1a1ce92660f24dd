package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/model"
)

// fakeClient is a scripted Client implementation.
type fakeClient struct {
	name string

	classifyFn func(query string) (*model.Intent, error)
	mapFn      func(names []string) (map[string]string, error)
	synthFn    func(in *SynthesisInput) (string, error)

	classifyCalls int
	mapCalls      int
	synthCalls    int
}

func (f *fakeClient) ClassifyIntent(_ context.Context, query string) (*model.Intent, error) {
	f.classifyCalls++
	return f.classifyFn(query)
}

func (f *fakeClient) MapSymbols(_ context.Context, names []string) (map[string]string, error) {
	f.mapCalls++
	if f.mapFn == nil {
		return nil, fmt.Errorf("unexpected MapSymbols call")
	}
	return f.mapFn(names)
}

func (f *fakeClient) Synthesize(_ context.Context, in *SynthesisInput) (string, error) {
	f.synthCalls++
	return f.synthFn(in)
}

func (f *fakeClient) ProviderName() string { return f.name }
func (f *fakeClient) ModelName() string    { return "fake-model" }

func newTestGateway(clients ...Client) *Gateway {
	// ratePerMinute 0 disables throttling in tests
	return NewGateway(clients, 0, zap.NewNop())
}

func TestClassifyIntent_MalformedRetriesOnceThenUnknown(t *testing.T) {
	client := &fakeClient{
		name: "primary",
		classifyFn: func(string) (*model.Intent, error) {
			return nil, fmt.Errorf("%w: bad shape", ErrMalformedOutput)
		},
	}

	intent, err := newTestGateway(client).ClassifyIntent(context.Background(), "how is AAPL?")
	if err != nil {
		t.Fatalf("malformed output must degrade, not fail: %v", err)
	}
	if intent.Kind != model.IntentUnknown {
		t.Errorf("expected unknown, got %s", intent.Kind)
	}
	if client.classifyCalls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", client.classifyCalls)
	}
}

func TestClassifyIntent_MalformedThenValidRetrySucceeds(t *testing.T) {
	calls := 0
	client := &fakeClient{
		name: "primary",
		classifyFn: func(string) (*model.Intent, error) {
			calls++
			if calls == 1 {
				return nil, fmt.Errorf("%w: bad shape", ErrMalformedOutput)
			}
			return &model.Intent{Kind: model.IntentSingleQuote, Terms: []string{"AAPL"}}, nil
		},
	}

	intent, err := newTestGateway(client).ClassifyIntent(context.Background(), "how is AAPL?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Kind != model.IntentSingleQuote {
		t.Errorf("expected single_quote from retry, got %s", intent.Kind)
	}
}

func TestClassifyIntent_FallsBackToSecondProvider(t *testing.T) {
	primary := &fakeClient{
		name: "primary",
		classifyFn: func(string) (*model.Intent, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	fallback := &fakeClient{
		name: "fallback",
		classifyFn: func(string) (*model.Intent, error) {
			return &model.Intent{Kind: model.IntentSingleQuote, Terms: []string{"AAPL"}}, nil
		},
	}

	intent, err := newTestGateway(primary, fallback).ClassifyIntent(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Kind != model.IntentSingleQuote {
		t.Errorf("expected fallback result, got %s", intent.Kind)
	}
	if primary.classifyCalls != 1 || fallback.classifyCalls != 1 {
		t.Errorf("expected one call each, got %d/%d", primary.classifyCalls, fallback.classifyCalls)
	}
}

func TestClassifyIntent_AllProvidersDownIsFatal(t *testing.T) {
	client := &fakeClient{
		name: "primary",
		classifyFn: func(string) (*model.Intent, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	_, err := newTestGateway(client).ClassifyIntent(context.Background(), "q")
	if err == nil {
		t.Fatal("expected an error when every provider is unreachable")
	}
	if !strings.Contains(err.Error(), "all LLM providers failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveSymbols_TickerPassthroughSkipsModel(t *testing.T) {
	client := &fakeClient{name: "primary"}

	resolved, dropped, err := newTestGateway(client).ResolveSymbols(context.Background(), []string{"AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 || resolved[0] != "AAPL" {
		t.Errorf("expected [AAPL], got %v", resolved)
	}
	if len(dropped) != 0 {
		t.Errorf("expected nothing dropped, got %v", dropped)
	}
	if client.mapCalls != 0 {
		t.Errorf("ticker-like tokens must not trigger a model call, got %d", client.mapCalls)
	}
}

func TestResolveSymbols_MapsCompanyNames(t *testing.T) {
	client := &fakeClient{
		name: "primary",
		mapFn: func(names []string) (map[string]string, error) {
			return map[string]string{"Apple": "aapl", "Some Unknown Co": ""}, nil
		},
	}

	resolved, dropped, err := newTestGateway(client).ResolveSymbols(
		context.Background(),
		[]string{"TSLA", "Apple", "Some Unknown Co", "tsla"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "tsla" is not ticker-like (lowercase) and was not mapped; dropped.
	want := []string{"TSLA", "AAPL"}
	if len(resolved) != len(want) {
		t.Fatalf("expected %v, got %v", want, resolved)
	}
	for i := range want {
		if resolved[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], resolved[i])
		}
	}
	if len(dropped) != 2 {
		t.Errorf("expected 2 dropped terms, got %v", dropped)
	}
}

func TestResolveSymbols_DeduplicatesPreservingOrder(t *testing.T) {
	client := &fakeClient{
		name: "primary",
		mapFn: func(names []string) (map[string]string, error) {
			return map[string]string{"Apple": "AAPL"}, nil
		},
	}

	resolved, _, err := newTestGateway(client).ResolveSymbols(
		context.Background(),
		[]string{"AAPL", "MSFT", "Apple", "AAPL"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"AAPL", "MSFT"}
	if len(resolved) != len(want) || resolved[0] != "AAPL" || resolved[1] != "MSFT" {
		t.Errorf("expected %v, got %v", want, resolved)
	}
}

func TestResolveSymbols_MappingFailureDropsUnresolved(t *testing.T) {
	client := &fakeClient{
		name: "primary",
		mapFn: func(names []string) (map[string]string, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	resolved, dropped, err := newTestGateway(client).ResolveSymbols(
		context.Background(),
		[]string{"AAPL", "Apple"},
	)
	if err != nil {
		t.Fatalf("resolution is best-effort, must not fail: %v", err)
	}
	if len(resolved) != 1 || resolved[0] != "AAPL" {
		t.Errorf("expected [AAPL], got %v", resolved)
	}
	if len(dropped) != 1 || dropped[0] != "Apple" {
		t.Errorf("expected [Apple] dropped, got %v", dropped)
	}
}

func TestSynthesize_FallsBackToSecondProvider(t *testing.T) {
	primary := &fakeClient{
		name: "primary",
		synthFn: func(*SynthesisInput) (string, error) {
			return "", fmt.Errorf("timeout")
		},
	}
	fallback := &fakeClient{
		name: "fallback",
		synthFn: func(*SynthesisInput) (string, error) {
			return "AAPL is up today.", nil
		},
	}

	text, err := newTestGateway(primary, fallback).Synthesize(context.Background(), &SynthesisInput{
		Intent: &model.Intent{Kind: model.IntentSingleQuote},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "AAPL is up today." {
		t.Errorf("unexpected text: %q", text)
	}
}
