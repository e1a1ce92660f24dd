package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/model"
	"github.com/c-emman/stock-insights-assistant/internal/orchestrator"
)

type fakeRunner struct {
	result *model.Result
	err    error
	query  string
}

func (f *fakeRunner) HandleQuery(_ context.Context, query string) (*model.Result, error) {
	f.query = query
	return f.result, f.err
}

func newQueryRouter(runner *fakeRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewQueryHandler(runner, zap.NewNop())
	r.POST("/api/v1/query", h.Query)
	return r
}

func postQuery(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQuery_Success(t *testing.T) {
	runner := &fakeRunner{result: &model.Result{
		Response: "AAPL is trading at 182.52 (+1.30%).",
		Symbols:  []string{"AAPL"},
	}}
	w := postQuery(t, newQueryRouter(runner), `{"query": "How is AAPL doing today?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got model.Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.Response != runner.result.Response {
		t.Errorf("unexpected response text: %q", got.Response)
	}
	if len(got.Symbols) != 1 || got.Symbols[0] != "AAPL" {
		t.Errorf("unexpected symbols: %v", got.Symbols)
	}
	if runner.query != "How is AAPL doing today?" {
		t.Errorf("query not passed through: %q", runner.query)
	}
}

func TestQuery_TrimsWhitespace(t *testing.T) {
	runner := &fakeRunner{result: &model.Result{Response: "ok", Symbols: []string{}}}
	w := postQuery(t, newQueryRouter(runner), `{"query": "  How is AAPL?  "}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if runner.query != "How is AAPL?" {
		t.Errorf("expected trimmed query, got %q", runner.query)
	}
}

func TestQuery_EmptyQueryIsBadRequest(t *testing.T) {
	runner := &fakeRunner{}
	w := postQuery(t, newQueryRouter(runner), `{"query": "   "}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if runner.query != "" {
		t.Error("empty query must not reach the orchestrator")
	}
}

func TestQuery_MalformedBodyIsBadRequest(t *testing.T) {
	w := postQuery(t, newQueryRouter(&fakeRunner{}), `{"query": `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestQuery_PipelineErrorIsBadGateway(t *testing.T) {
	runner := &fakeRunner{err: &orchestrator.PipelineError{
		Stage: orchestrator.StageClassified,
		Err:   errors.New("all LLM providers failed"),
	}}
	w := postQuery(t, newQueryRouter(runner), `{"query": "How is AAPL?"}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "LLM") {
		t.Errorf("internal detail leaked to the client: %s", w.Body.String())
	}
}

func TestQuery_UnexpectedErrorIsInternal(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	w := postQuery(t, newQueryRouter(runner), `{"query": "How is AAPL?"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") {
		t.Errorf("internal detail leaked to the client: %s", w.Body.String())
	}
}
