package indicators

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/epeers/marketetl/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Indicator parameters
const (
	SMAShortWindow   = 20
	SMALongWindow    = 50
	EMASpan          = 20
	RSIWindow        = 14
	MACDShortSpan    = 12
	MACDLongSpan     = 26
	MACDSignalSpan   = 9
	ATRWindow        = 14
	BollingerWindow  = 20
	BollingerK       = 2.0
	VolatilityWindow = 20
)

var (
	// ErrUnsortedInput is returned when a security's bars go backwards in time
	ErrUnsortedInput = errors.New("unsorted input")
	// ErrDuplicateDate is returned when a security has two bars for the same date
	ErrDuplicateDate = errors.New("duplicate date")
	// ErrMixedSecurities is returned when Compute receives bars for more than one ticker
	ErrMixedSecurities = errors.New("series contains more than one security")
)

// EngineConfig configures an Engine
type EngineConfig struct {
	// FibLookback is the number of trailing bars anchoring the Fibonacci range; 0 means all history.
	FibLookback int
	// Workers bounds how many securities are computed concurrently.
	Workers int
	// SortInput sorts bars by (ticker, date) before computing instead of rejecting unsorted series.
	SortInput bool
}

// Engine derives indicator rows from price bars, one security at a time
type Engine struct {
	cfg EngineConfig
}

// Failure records a security whose series could not be derived
type Failure struct {
	Ticker string
	Err    error
}

// Result is the outcome of ComputeAll
type Result struct {
	Rows     []models.IndicatorRow
	Failures []Failure
}

// NewEngine creates a new Engine
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{cfg: cfg}
}

func opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optString(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

// checkOrder verifies a single-ticker series is strictly increasing by date.
func checkOrder(bars []models.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Ticker != bars[0].Ticker {
			return fmt.Errorf("%w: %s and %s", ErrMixedSecurities, bars[0].Ticker, bars[i].Ticker)
		}
		prev, cur := bars[i-1].Date, bars[i].Date
		if cur.Equal(prev) {
			return fmt.Errorf("%w: %s at row %d", ErrDuplicateDate, cur.Format("2006-01-02"), i)
		}
		if cur.Before(prev) {
			return fmt.Errorf("%w: %s follows %s at row %d", ErrUnsortedInput,
				cur.Format("2006-01-02"), prev.Format("2006-01-02"), i)
		}
	}
	return nil
}

// Compute derives one IndicatorRow per bar for a single security's series.
// Each row depends only on bars at or before its own date.
func (e *Engine) Compute(bars []models.PriceBar) ([]models.IndicatorRow, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	if err := checkOrder(bars); err != nil {
		return nil, err
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]int64, n)
	for i, b := range bars {
		closes[i], highs[i], lows[i], volumes[i] = b.Close, b.High, b.Low, b.Volume
	}

	sma20, err := SMA(closes, SMAShortWindow)
	if err != nil {
		return nil, err
	}
	sma50, err := SMA(closes, SMALongWindow)
	if err != nil {
		return nil, err
	}
	ema20, err := EMA(closes, EMASpan)
	if err != nil {
		return nil, err
	}
	rsi, err := RSI(closes, RSIWindow)
	if err != nil {
		return nil, err
	}
	macd, err := MACD(closes, MACDShortSpan, MACDLongSpan, MACDSignalSpan)
	if err != nil {
		return nil, err
	}
	atr, err := ATR(highs, lows, closes, ATRWindow)
	if err != nil {
		return nil, err
	}
	obv, err := OBV(closes, volumes)
	if err != nil {
		return nil, err
	}
	bands, err := Bollinger(closes, BollingerWindow, BollingerK)
	if err != nil {
		return nil, err
	}
	vol, err := RollingStd(closes, VolatilityWindow)
	if err != nil {
		return nil, err
	}
	fib, err := Fibonacci(highs, lows, closes, e.cfg.FibLookback)
	if err != nil {
		return nil, err
	}

	rows := make([]models.IndicatorRow, n)
	for i, b := range bars {
		rows[i] = models.IndicatorRow{
			Ticker:          b.Ticker,
			Date:            b.Date,
			SMA20:           opt(sma20[i]),
			SMA50:           opt(sma50[i]),
			EMA20:           opt(ema20[i]),
			RSI14:           opt(rsi[i]),
			MACD:            opt(macd.MACD[i]),
			MACDSignal:      opt(macd.Signal[i]),
			MACDHist:        opt(macd.Hist[i]),
			ATR14:           opt(atr[i]),
			OBV:             opt(obv[i]),
			BBMiddle:        opt(bands.Middle[i]),
			BBUpper:         opt(bands.Upper[i]),
			BBLower:         opt(bands.Lower[i]),
			Volatility20:    opt(vol[i]),
			Fib0:            opt(fib.Levels[0][i]),
			Fib236:          opt(fib.Levels[1][i]),
			Fib382:          opt(fib.Levels[2][i]),
			Fib500:          opt(fib.Levels[3][i]),
			Fib618:          opt(fib.Levels[4][i]),
			Fib100:          opt(fib.Levels[5][i]),
			NearestFibLevel: optString(fib.Nearest[i], fib.Defined[i]),
			FibState:        optString(fib.State[i], fib.Defined[i]),
		}
	}
	return rows, nil
}

// Partition splits bars into per-ticker series, keeping input order within each ticker.
// Tickers are returned sorted.
func Partition(bars []models.PriceBar) ([]string, map[string][]models.PriceBar) {
	groups := make(map[string][]models.PriceBar)
	for _, b := range bars {
		groups[b.Ticker] = append(groups[b.Ticker], b)
	}
	tickers := make([]string, 0, len(groups))
	for t := range groups {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers, groups
}

// ComputeAll derives indicator rows for every security in bars. Securities are
// computed concurrently and independently: a failing security is reported in
// Result.Failures and does not affect the others. Rows come back ordered by (ticker, date).
func (e *Engine) ComputeAll(ctx context.Context, bars []models.PriceBar) (*Result, error) {
	start := time.Now()
	if e.cfg.SortInput {
		bars = append([]models.PriceBar(nil), bars...)
		sort.SliceStable(bars, func(i, j int) bool {
			if bars[i].Ticker != bars[j].Ticker {
				return bars[i].Ticker < bars[j].Ticker
			}
			return bars[i].Date.Before(bars[j].Date)
		})
	}

	tickers, groups := Partition(bars)
	rowsByTicker := make([][]models.IndicatorRow, len(tickers))
	errsByTicker := make([]error, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, ticker := range tickers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rowsByTicker[i], errsByTicker[i] = e.computeIsolated(groups[ticker])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indicator computation cancelled: %w", err)
	}

	result := &Result{}
	for i, ticker := range tickers {
		if errsByTicker[i] != nil {
			log.Warnf("Indicators for %s failed: %v", ticker, errsByTicker[i])
			result.Failures = append(result.Failures, Failure{Ticker: ticker, Err: errsByTicker[i]})
			continue
		}
		result.Rows = append(result.Rows, rowsByTicker[i]...)
	}

	log.Debugf("ComputeAll: %d securities, %d rows, %d failures in %d ms",
		len(tickers), len(result.Rows), len(result.Failures), time.Since(start).Milliseconds())
	return result, nil
}

// computeIsolated runs Compute and turns a panic into an error for that security only.
func (e *Engine) computeIsolated(bars []models.PriceBar) (rows []models.IndicatorRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("panic computing indicators: %v", r)
		}
	}()
	return e.Compute(bars)
}
