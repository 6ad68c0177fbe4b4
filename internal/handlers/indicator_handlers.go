package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/epeers/marketetl/internal/cache"
	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/repository"
	"github.com/gin-gonic/gin"
)

// IndicatorReader reads persisted indicator series
type IndicatorReader interface {
	GetSeries(ctx context.Context, ticker string, startDate, endDate time.Time) ([]models.IndicatorRow, error)
}

// CompanyReader resolves a ticker to its company
type CompanyReader interface {
	GetByTicker(ctx context.Context, ticker string) (*models.Company, error)
}

// IndicatorHandler handles technical indicator endpoints
type IndicatorHandler struct {
	indicators IndicatorReader
	companies  CompanyReader
	cache      *cache.MemoryCache
}

// NewIndicatorHandler creates a new IndicatorHandler
func NewIndicatorHandler(indicators IndicatorReader, companies CompanyReader, memCache *cache.MemoryCache) *IndicatorHandler {
	return &IndicatorHandler{
		indicators: indicators,
		companies:  companies,
		cache:      memCache,
	}
}

// parseOptionalDate parses a YYYY-MM-DD query value; empty means unbounded.
func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// GetSeries handles GET /indicators/:ticker
// @Summary Get the technical indicator series of a ticker
// @Description Daily indicator rows ordered by date. Fields without enough history are null.
// @Tags indicators
// @Produce json
// @Param ticker path string true "Ticker symbol"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} models.GetIndicatorsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /indicators/{ticker} [get]
func (h *IndicatorHandler) GetSeries(c *gin.Context) {
	var req models.GetIndicatorsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "start_date must be in YYYY-MM-DD format",
		})
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "end_date must be in YYYY-MM-DD format",
		})
		return
	}
	if !startDate.IsZero() && !endDate.IsZero() && endDate.Before(startDate) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "end_date must not be before start_date",
		})
		return
	}

	ctx := c.Request.Context()
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))

	rows, ok := h.cache.GetIndicators(ticker, startDate, endDate)
	if !ok {
		if _, err := h.companies.GetByTicker(ctx, ticker); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, models.ErrorResponse{
					Error:   "not_found",
					Message: "unknown ticker: " + ticker,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
			return
		}

		rows, err = h.indicators.GetSeries(ctx, ticker, startDate, endDate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: err.Error(),
			})
			return
		}
		if rows == nil {
			rows = []models.IndicatorRow{}
		}
		h.cache.SetIndicators(ticker, startDate, endDate, rows)
	}

	c.JSON(http.StatusOK, models.GetIndicatorsResponse{
		Ticker:     ticker,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		DataPoints: len(rows),
		Indicators: rows,
	})
}
