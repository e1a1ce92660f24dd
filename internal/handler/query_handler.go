// Package handler contains the HTTP request handlers. The handlers are a
// thin shell: validation and status-code mapping only, with all branching
// logic living in the orchestrator.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/model"
	"github.com/c-emman/stock-insights-assistant/internal/orchestrator"
)

// QueryRunner is the one operation the boundary layer needs from the
// orchestrator.
type QueryRunner interface {
	HandleQuery(ctx context.Context, query string) (*model.Result, error)
}

// QueryRequest is the inbound JSON body.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryHandler handles natural-language stock queries.
type QueryHandler struct {
	runner QueryRunner
	logger *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(runner QueryRunner, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		runner: runner,
		logger: logger,
	}
}

// Query answers one natural-language question about stocks.
// Route: POST /api/v1/query  body: {"query": "How is AAPL doing today?"}
//
// The orchestrator absorbs every recoverable failure into the response
// text, so the only non-200 outcomes here are a bad request body and total
// upstream unavailability.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "query must not be empty",
		})
		return
	}

	result, err := h.runner.HandleQuery(c.Request.Context(), query)
	if err != nil {
		var perr *orchestrator.PipelineError
		if errors.As(err, &perr) {
			h.logger.Error("pipeline failed",
				zap.String("stage", string(perr.Stage)),
				zap.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "upstream services are unavailable, please try again later",
			})
			return
		}

		h.logger.Error("query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal error",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
