package models

import (
	"time"
)

// Company represents a listed company from the market-cap listing extract.
// Maps to the companies table, keyed by ticker.
type Company struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// PriceBar represents one daily OHLCV bar for a security.
// Maps to price_history, keyed by (ticker, date).
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// FundamentalRecord holds the fundamental ratios for a security.
// Ratio fields are nullable because the raw extract has gaps.
type FundamentalRecord struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	PER           *float64 `json:"per"`
	ROE           *float64 `json:"roe"`
	EPSGrowthYoY  *float64 `json:"eps_growth_yoy"`
	DebtToEquity  *float64 `json:"debt_to_equity"`
	NetMargin     *float64 `json:"net_margin"`
	DividendYield *float64 `json:"dividend_yield"`
	MarketCap     *float64 `json:"market_cap"`
	MarketCapRank int      `json:"market_cap_rank"`
}

// Dated is implemented by rows that belong to a (ticker, date) keyed time series.
type Dated interface {
	SecurityKey() string
	RowDate() time.Time
}

// SecurityKey returns the ticker of the bar
func (p PriceBar) SecurityKey() string { return p.Ticker }

// RowDate returns the trading date of the bar
func (p PriceBar) RowDate() time.Time { return p.Date }

// Float returns a pointer to v. Used to build nullable ratio fields.
func Float(v float64) *float64 {
	return &v
}
