package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/epeers/marketetl/internal/cache"
	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/repository"
	"github.com/gin-gonic/gin"
)

// SummaryReader reads the persisted investment summary
type SummaryReader interface {
	GetAll(ctx context.Context) ([]models.SummaryRow, error)
	GetByTicker(ctx context.Context, ticker string) (*models.SummaryRow, error)
}

// SummaryHandler handles investment summary endpoints
type SummaryHandler struct {
	summaries SummaryReader
	cache     *cache.MemoryCache
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(summaries SummaryReader, memCache *cache.MemoryCache) *SummaryHandler {
	return &SummaryHandler{
		summaries: summaries,
		cache:     memCache,
	}
}

// List handles GET /summaries
// @Summary List investment summaries
// @Description Latest BUY/SELL/HOLD recommendation for every ticker, ordered by ticker
// @Tags summaries
// @Produce json
// @Param decision query string false "Only return rows with this final decision (BUY, SELL, HOLD)"
// @Success 200 {object} models.ListSummariesResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /summaries [get]
func (h *SummaryHandler) List(c *gin.Context) {
	var decision models.Signal
	if d := c.Query("decision"); d != "" {
		decision = models.Signal(strings.ToUpper(d))
		if decision != models.SignalBuy && decision != models.SignalSell && decision != models.SignalHold {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_request",
				Message: "decision must be one of BUY, SELL, HOLD",
			})
			return
		}
	}

	rows, ok := h.cache.GetSummaries()
	if !ok {
		var err error
		rows, err = h.summaries.GetAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
			return
		}
		h.cache.SetSummaries(rows)
	}

	out := make([]models.SummaryRow, 0, len(rows))
	for _, r := range rows {
		if decision == "" || r.FinalDecision == decision {
			out = append(out, r)
		}
	}

	c.JSON(http.StatusOK, models.ListSummariesResponse{
		Count:     len(out),
		Summaries: out,
	})
}

// Get handles GET /summaries/:ticker
// @Summary Get the investment summary of one ticker
// @Tags summaries
// @Produce json
// @Param ticker path string true "Ticker symbol"
// @Success 200 {object} models.SummaryRow
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /summaries/{ticker} [get]
func (h *SummaryHandler) Get(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))

	row, err := h.summaries.GetByTicker(c.Request.Context(), ticker)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "not_found",
				Message: "no summary for ticker: " + ticker,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, row)
}
