package models

import (
	"time"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// GetIndicatorsRequest represents the query parameters for fetching an indicator series
type GetIndicatorsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// GetIndicatorsResponse represents the response for an indicator series
type GetIndicatorsResponse struct {
	Ticker     string         `json:"ticker"`
	StartDate  string         `json:"start_date,omitempty"`
	EndDate    string         `json:"end_date,omitempty"`
	DataPoints int            `json:"data_points"`
	Indicators []IndicatorRow `json:"indicators"`
}

// ListSummariesResponse represents the response for all investment summaries
type ListSummariesResponse struct {
	Count     int          `json:"count"`
	Summaries []SummaryRow `json:"summaries"`
}

// SecurityFailure names a security whose indicator series could not be derived
type SecurityFailure struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// RunReport describes the outcome of one pipeline run
type RunReport struct {
	RunID            string            `json:"run_id"`
	StartedAt        time.Time         `json:"started_at"`
	DurationMs       int64             `json:"duration_ms"`
	Companies        int               `json:"companies"`
	PricesRead       int               `json:"prices_read"`
	PricesLoaded     int               `json:"prices_loaded"`
	Fundamentals     int               `json:"fundamentals"`
	IndicatorsBuilt  int               `json:"indicators_built"`
	IndicatorsLoaded int               `json:"indicators_loaded"`
	Summaries        int               `json:"summaries"`
	Malformed        int               `json:"malformed"`
	Failed           []SecurityFailure `json:"failed,omitempty"`
	Warnings         []Warning         `json:"warnings,omitempty"`
}
