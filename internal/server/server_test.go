package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/config"
	"github.com/c-emman/stock-insights-assistant/internal/model"
)

type stubRunner struct{}

func (stubRunner) HandleQuery(_ context.Context, _ string) (*model.Result, error) {
	return &model.Result{Response: "ok", Symbols: []string{}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return New(cfg, stubRunner{}, zap.NewNop())
}

func TestHealthzRoute(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestQueryRouteIsWired(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"query": "How is AAPL?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"response":"ok"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}
