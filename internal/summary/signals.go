package summary

import (
	"github.com/epeers/marketetl/internal/models"
)

// Decision thresholds, in percent of evaluated signals that say BUY
const (
	BuyThreshold  = 66.0
	SellThreshold = 33.0
)

func sig(s models.Signal) *models.Signal {
	return &s
}

// binary returns BUY when a > b, SELL otherwise. Absent inputs are not evaluated.
func binary(a, b *float64) *models.Signal {
	if a == nil || b == nil {
		return nil
	}
	if *a > *b {
		return sig(models.SignalBuy)
	}
	return sig(models.SignalSell)
}

// band returns BUY when buy(v), SELL when sell(v), HOLD otherwise.
func band(v *float64, buy, sell func(float64) bool) *models.Signal {
	if v == nil {
		return nil
	}
	switch {
	case buy(*v):
		return sig(models.SignalBuy)
	case sell(*v):
		return sig(models.SignalSell)
	default:
		return sig(models.SignalHold)
	}
}

// SMAVsEMA is BUY when the 20-day simple average is above the 20-day exponential average.
func SMAVsEMA(row models.IndicatorRow) *models.Signal {
	return binary(row.SMA20, row.EMA20)
}

// MACDCross is BUY when the MACD line is above its signal line.
func MACDCross(row models.IndicatorRow) *models.Signal {
	return binary(row.MACD, row.MACDSignal)
}

// RSI is BUY below 30 (oversold) and SELL above 70 (overbought).
func RSI(row models.IndicatorRow) *models.Signal {
	return band(row.RSI14,
		func(v float64) bool { return v < 30 },
		func(v float64) bool { return v > 70 })
}

// PER is BUY below 20 and SELL above 30.
func PER(f models.FundamentalRecord) *models.Signal {
	return band(f.PER,
		func(v float64) bool { return v < 20 },
		func(v float64) bool { return v > 30 })
}

// ROE is BUY above 15% and SELL below 5%.
func ROE(f models.FundamentalRecord) *models.Signal {
	return band(f.ROE,
		func(v float64) bool { return v > 0.15 },
		func(v float64) bool { return v < 0.05 })
}

// EPSGrowth is BUY above 10% year over year and SELL when earnings shrank.
func EPSGrowth(f models.FundamentalRecord) *models.Signal {
	return band(f.EPSGrowthYoY,
		func(v float64) bool { return v > 0.10 },
		func(v float64) bool { return v < 0 })
}

// DebtEquity is BUY below 100 and SELL above 200.
func DebtEquity(f models.FundamentalRecord) *models.Signal {
	return band(f.DebtToEquity,
		func(v float64) bool { return v < 100 },
		func(v float64) bool { return v > 200 })
}

// BollingerState places the close relative to the bands. Nil if any input is missing.
func BollingerState(last *float64, row models.IndicatorRow) *string {
	if last == nil || row.BBUpper == nil || row.BBLower == nil {
		return nil
	}
	state := models.BollingerNormal
	switch {
	case *last > *row.BBUpper:
		state = models.BollingerOverbought
	case *last < *row.BBLower:
		state = models.BollingerOversold
	}
	return &state
}

// Decide fuses the two buy percentages. A missing percentage never meets a threshold.
func Decide(pctTechnical, pctFundamental *float64) models.Signal {
	if pctTechnical == nil || pctFundamental == nil {
		return models.SignalHold
	}
	switch {
	case *pctTechnical >= BuyThreshold && *pctFundamental >= BuyThreshold:
		return models.SignalBuy
	case *pctTechnical <= SellThreshold && *pctFundamental <= SellThreshold:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}
