package models

import (
	"time"
)

// Fibonacci retracement states
const (
	FibNearSupport    = "near support"
	FibNearResistance = "near resistance"
	FibBetweenLevels  = "between levels"
	FibAboveRange     = "above range"
	FibBelowRange     = "below range"
	FibFlatRange      = "flat range"
)

// IndicatorRow is the technical indicator vector for one (ticker, date).
// A nil field means not enough history existed to compute it.
type IndicatorRow struct {
	Ticker          string    `json:"ticker"`
	Date            time.Time `json:"date"`
	SMA20           *float64  `json:"sma_20"`
	SMA50           *float64  `json:"sma_50"`
	EMA20           *float64  `json:"ema_20"`
	RSI14           *float64  `json:"rsi_14"`
	MACD            *float64  `json:"macd"`
	MACDSignal      *float64  `json:"macd_signal"`
	MACDHist        *float64  `json:"macd_hist"`
	ATR14           *float64  `json:"atr_14"`
	OBV             *float64  `json:"obv"`
	BBMiddle        *float64  `json:"bb_middle"`
	BBUpper         *float64  `json:"bb_upper"`
	BBLower         *float64  `json:"bb_lower"`
	Volatility20    *float64  `json:"volatility_20"`
	Fib0            *float64  `json:"fib_0_0"`
	Fib236          *float64  `json:"fib_23_6"`
	Fib382          *float64  `json:"fib_38_2"`
	Fib500          *float64  `json:"fib_50_0"`
	Fib618          *float64  `json:"fib_61_8"`
	Fib100          *float64  `json:"fib_100"`
	NearestFibLevel *string   `json:"nearest_fib_level"`
	FibState        *string   `json:"fib_state"`
}

// SecurityKey returns the ticker of the row
func (r IndicatorRow) SecurityKey() string { return r.Ticker }

// RowDate returns the trading date of the row
func (r IndicatorRow) RowDate() time.Time { return r.Date }
