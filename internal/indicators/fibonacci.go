package indicators

import (
	"fmt"
	"math"

	"github.com/epeers/marketetl/internal/models"
)

// FibRatios are the retracement ratios, ordered from the range high (0) to the range low (1).
var FibRatios = [6]float64{0, 0.236, 0.382, 0.5, 0.618, 1.0}

// FibLabels name the levels in FibRatios order.
var FibLabels = [6]string{"0.0%", "23.6%", "38.2%", "50.0%", "61.8%", "100.0%"}

// Position thresholds inside a bracket, measured from the lower level.
const (
	supportBand    = 0.25
	resistanceBand = 0.75
)

// FibLevels holds the retracement prices for one anchor range
type FibLevels [6]float64

// FibonacciLevels computes high - ratio*(high-low) for every ratio in FibRatios.
func FibonacciLevels(high, low float64) FibLevels {
	var lv FibLevels
	span := high - low
	for i, r := range FibRatios {
		lv[i] = high - r*span
	}
	return lv
}

// Nearest returns the index of the level closest to price. Ties go to the lower ratio.
func (lv FibLevels) Nearest(price float64) int {
	best := 0
	bestDist := math.Abs(price - lv[0])
	for i := 1; i < len(lv); i++ {
		if d := math.Abs(price - lv[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// State buckets price relative to the two levels that bracket it.
func (lv FibLevels) State(price float64) string {
	high, low := lv[0], lv[len(lv)-1]
	switch {
	case high == low:
		return models.FibFlatRange
	case price > high:
		return models.FibAboveRange
	case price < low:
		return models.FibBelowRange
	}

	// levels descend in price as the ratio grows
	for i := 1; i < len(lv); i++ {
		upper, lower := lv[i-1], lv[i]
		if price < lower {
			continue
		}
		p := (price - lower) / (upper - lower)
		switch {
		case p <= supportBand:
			return models.FibNearSupport
		case p >= resistanceBand:
			return models.FibNearResistance
		default:
			return models.FibBetweenLevels
		}
	}
	return models.FibBetweenLevels
}

// FibSeries is the per-row Fibonacci output for one security
type FibSeries struct {
	Levels  [6][]float64
	Nearest []string
	State   []string
	Defined []bool
}

// Fibonacci anchors each row to the highest high and lowest low over the trailing
// lookback bars, current bar included. A lookback of 0 anchors to all bars so far.
// With a positive lookback, rows with fewer than lookback bars are left undefined.
func Fibonacci(highs, lows, closes []float64, lookback int) (FibSeries, error) {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return FibSeries{}, fmt.Errorf("fibonacci: %w", ErrLengthMismatch)
	}
	if lookback < 0 {
		return FibSeries{}, fmt.Errorf("fibonacci: %w (got %d)", ErrInvalidWindow, lookback)
	}

	n := len(closes)
	out := FibSeries{
		Nearest: make([]string, n),
		State:   make([]string, n),
		Defined: make([]bool, n),
	}
	for j := range out.Levels {
		out.Levels[j] = nanSeries(n)
	}

	for i := 0; i < n; i++ {
		start := 0
		if lookback > 0 {
			if i+1 < lookback {
				continue
			}
			start = i - lookback + 1
		}
		hi, lo := highs[start], lows[start]
		for k := start + 1; k <= i; k++ {
			hi = math.Max(hi, highs[k])
			lo = math.Min(lo, lows[k])
		}

		lv := FibonacciLevels(hi, lo)
		for j := range lv {
			out.Levels[j][i] = lv[j]
		}
		out.Nearest[i] = FibLabels[lv.Nearest(closes[i])]
		out.State[i] = lv.State(closes[i])
		out.Defined[i] = true
	}
	return out, nil
}
