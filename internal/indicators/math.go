// Package indicators derives technical indicators from daily price series.
//
// Series are plain []float64 where NaN marks a position with no value yet
// (not enough trailing history). Conversion to nullable fields happens when
// the engine assembles IndicatorRows.
package indicators

import (
	"errors"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

var (
	// ErrInvalidWindow is returned when a window or span is not positive
	ErrInvalidWindow = errors.New("window must be positive")
	// ErrLengthMismatch is returned when parallel input series differ in length
	ErrLengthMismatch = errors.New("input series lengths differ")
)

// RSISentinel is the RSI value used when the average loss over the window is zero.
const RSISentinel = 100.0

// MACDResult holds the three MACD output series
type MACDResult struct {
	MACD   []float64
	Signal []float64
	Hist   []float64
}

// Bands holds Bollinger band series
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// trailing returns series[i-w+1 : i+1] and whether every value in it is defined.
func trailing(series []float64, i, w int) ([]float64, bool) {
	if i+1 < w {
		return nil, false
	}
	win := series[i-w+1 : i+1]
	for _, v := range win {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return win, true
}

func hasGap(series []float64) bool {
	for _, v := range series {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// SMA computes the trailing arithmetic mean over window values.
// The first window-1 positions (and any window touching an undefined value) are NaN.
// Gap-free series go through talib.Sma, whose zero-filled warm-up is masked to NaN.
func SMA(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("sma: %w (got %d)", ErrInvalidWindow, window)
	}
	if len(series) >= window && !hasGap(series) {
		out := talib.Sma(series, window)
		for i := 0; i < window-1; i++ {
			out[i] = math.NaN()
		}
		return out, nil
	}

	out := nanSeries(len(series))
	for i := range series {
		win, ok := trailing(series, i, window)
		if !ok {
			continue
		}
		sum := 0.0
		for _, v := range win {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded by the first defined value rather than a simple average.
// Undefined inputs carry the previous average forward.
func EMA(series []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("ema: %w (got %d)", ErrInvalidWindow, span)
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := nanSeries(len(series))
	prev := math.NaN()
	for i, v := range series {
		switch {
		case math.IsNaN(v):
			// carry
		case math.IsNaN(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out, nil
}

// RollingStd computes the trailing sample standard deviation (ddof=1).
func RollingStd(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("rolling std: %w (got %d)", ErrInvalidWindow, window)
	}
	out := nanSeries(len(series))
	if window < 2 {
		return out, nil
	}
	for i := range series {
		win, ok := trailing(series, i, window)
		if !ok {
			continue
		}
		mean := 0.0
		for _, v := range win {
			mean += v
		}
		mean /= float64(window)
		ss := 0.0
		for _, v := range win {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out, nil
}

// RSI computes the relative strength index from trailing simple means of
// clipped gains and losses. The first defined value is at index window.
// A zero average loss yields RSISentinel.
func RSI(closes []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("rsi: %w (got %d)", ErrInvalidWindow, window)
	}
	n := len(closes)
	gains := nanSeries(n)
	losses := nanSeries(n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		if math.IsNaN(d) {
			continue
		}
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}

	avgGain, err := SMA(gains, window)
	if err != nil {
		return nil, err
	}
	avgLoss, err := SMA(losses, window)
	if err != nil {
		return nil, err
	}

	out := nanSeries(n)
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		if l == 0 {
			out[i] = RSISentinel
			continue
		}
		out[i] = 100 - 100/(1+g/l)
	}
	return out, nil
}

// MACD computes the moving average convergence/divergence line, its signal line and histogram.
func MACD(closes []float64, short, long, signal int) (MACDResult, error) {
	emaShort, err := EMA(closes, short)
	if err != nil {
		return MACDResult{}, fmt.Errorf("macd short: %w", err)
	}
	emaLong, err := EMA(closes, long)
	if err != nil {
		return MACDResult{}, fmt.Errorf("macd long: %w", err)
	}

	line := make([]float64, len(closes))
	for i := range line {
		line[i] = emaShort[i] - emaLong[i]
	}
	sig, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, fmt.Errorf("macd signal: %w", err)
	}
	hist := make([]float64, len(closes))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Hist: hist}, nil
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and uses high-low only.
func TrueRange(highs, lows, closes []float64) ([]float64, error) {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return nil, fmt.Errorf("true range: %w", ErrLengthMismatch)
	}
	out := make([]float64, len(closes))
	for i := range closes {
		tr := highs[i] - lows[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		}
		out[i] = tr
	}
	return out, nil
}

// ATR computes the average true range as a trailing mean of TrueRange.
func ATR(highs, lows, closes []float64, window int) ([]float64, error) {
	tr, err := TrueRange(highs, lows, closes)
	if err != nil {
		return nil, err
	}
	return SMA(tr, window)
}

// OBV computes on-balance volume. The first bar contributes 0.
func OBV(closes []float64, volumes []int64) ([]float64, error) {
	if len(closes) != len(volumes) {
		return nil, fmt.Errorf("obv: %w", ErrLengthMismatch)
	}
	out := make([]float64, len(closes))
	total := 0.0
	for i := range closes {
		if i > 0 {
			switch {
			case closes[i] > closes[i-1]:
				total += float64(volumes[i])
			case closes[i] < closes[i-1]:
				total -= float64(volumes[i])
			}
		}
		out[i] = total
	}
	return out, nil
}

// Bollinger computes middle = SMA(window) and upper/lower = middle ± k·sample stdev.
func Bollinger(closes []float64, window int, k float64) (Bands, error) {
	mid, err := SMA(closes, window)
	if err != nil {
		return Bands{}, fmt.Errorf("bollinger: %w", err)
	}
	std, err := RollingStd(closes, window)
	if err != nil {
		return Bands{}, fmt.Errorf("bollinger: %w", err)
	}
	upper := nanSeries(len(closes))
	lower := nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return Bands{Middle: mid, Upper: upper, Lower: lower}, nil
}
