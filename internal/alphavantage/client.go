// Package alphavantage fetches the raw price and company extracts from AlphaVantage.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/epeers/marketetl/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Alphavantage is a Stock and ETF API that fetches data including pricing data
// It is a subscription service, but provides free API access
// https://www.alphavantage.co/documentation/
const defaultBaseURL = "https://www.alphavantage.co/query"

// DefaultRequestsPerMinute matches the free tier
const DefaultRequestsPerMinute = 5

var (
	// ErrUnknownSymbol is returned when AlphaVantage has no data for a symbol
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrThrottled is returned when AlphaVantage rejects a call over the account quota
	ErrThrottled = errors.New("request throttled")
)

// Client is an HTTP client for the AlphaVantage API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL points the client at another server (for testing)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRequestsPerMinute sets the request budget; 0 or less disables pacing
func WithRequestsPerMinute(n int) ClientOption {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// NewClient creates a new AlphaVantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	WithRequestsPerMinute(DefaultRequestsPerMinute)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDailyPrices fetches daily bars for a symbol, oldest first.
// outputSize is "compact" (last 100 days) or "full".
func (c *Client) GetDailyPrices(ctx context.Context, symbol string, outputSize string) ([]models.PriceBar, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", outputSize)

	var tsResp TimeSeriesDailyResponse
	if err := c.get(ctx, params, &tsResp); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	if err := tsResp.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	if len(tsResp.TimeSeries) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}

	bars := make([]models.PriceBar, 0, len(tsResp.TimeSeries))
	for dateStr, ohlcv := range tsResp.TimeSeries {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			log.Debugf("%s: skipping unparseable date %q", symbol, dateStr)
			continue
		}

		open, _ := strconv.ParseFloat(ohlcv.Open, 64)
		high, _ := strconv.ParseFloat(ohlcv.High, 64)
		low, _ := strconv.ParseFloat(ohlcv.Low, 64)
		closePrice, err := strconv.ParseFloat(ohlcv.Close, 64)
		if err != nil {
			log.Debugf("%s: skipping %s without a close", symbol, dateStr)
			continue
		}
		volume, _ := strconv.ParseInt(ohlcv.Volume, 10, 64)

		bars = append(bars, models.PriceBar{
			Ticker: symbol,
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// GetOverview fetches the company profile and fundamental ratios of a symbol.
// AlphaVantage does not publish debt to equity here, so DebtToEquity is always nil.
func (c *Client) GetOverview(ctx context.Context, symbol string) (*models.Company, *models.FundamentalRecord, error) {
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)

	var ov OverviewResponse
	if err := c.get(ctx, params, &ov); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", symbol, err)
	}
	if err := ov.check(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", symbol, err)
	}
	if ov.Symbol == "" {
		return nil, nil, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}

	company := &models.Company{
		Ticker:   symbol,
		Name:     ov.Name,
		Sector:   titleCase(ov.Sector),
		Industry: titleCase(ov.Industry),
	}
	fundamentals := &models.FundamentalRecord{
		Ticker:        symbol,
		Name:          ov.Name,
		PER:           optFloat(ov.PERatio),
		ROE:           optFloat(ov.ReturnOnEquityTTM),
		EPSGrowthYoY:  optFloat(ov.QuarterlyEarningsGrowthYOY),
		NetMargin:     optFloat(ov.ProfitMargin),
		DividendYield: optFloat(ov.DividendYield),
		MarketCap:     optFloat(ov.MarketCapitalization),
	}
	return company, fundamentals, nil
}

func (m apiMessage) check() error {
	switch {
	case m.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, m.ErrorMessage)
	case m.Note != "":
		return fmt.Errorf("%w: %s", ErrThrottled, m.Note)
	case m.Information != "":
		return fmt.Errorf("%w: %s", ErrThrottled, m.Information)
	}
	return nil
}

// optFloat parses an AlphaVantage number; "None", "-" and empty mean absent
func optFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

// titleCase turns "TECHNOLOGY" into "Technology"
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (c *Client) get(ctx context.Context, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
