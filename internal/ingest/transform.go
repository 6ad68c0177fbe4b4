package ingest

import (
	"math"
	"sort"

	"github.com/epeers/marketetl/internal/models"
)

// PricePlaces is the number of decimals kept on open/high/low/close.
const PricePlaces = 3

// Round rounds v to places decimals the way pandas does: scale the binary value,
// round half to even, scale back. 2.0625 becomes 2.062 and 1.0005 becomes 1.0.
func Round(v float64, places int32) float64 {
	p := math.Pow10(int(places))
	return math.RoundToEven(v*p) / p
}

// RoundPrices rounds OHLC of every bar to PricePlaces decimals in place.
func RoundPrices(bars []models.PriceBar) {
	for i := range bars {
		bars[i].Open = Round(bars[i].Open, PricePlaces)
		bars[i].High = Round(bars[i].High, PricePlaces)
		bars[i].Low = Round(bars[i].Low, PricePlaces)
		bars[i].Close = Round(bars[i].Close, PricePlaces)
	}
}

// RankByMarketCap assigns MarketCapRank 1..n by descending market cap.
// Ties keep file order; records without a market cap rank after all others.
func RankByMarketCap(records []models.FundamentalRecord) {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := records[order[a]].MarketCap, records[order[b]].MarketCap
		switch {
		case ca == nil:
			return false
		case cb == nil:
			return true
		default:
			return *ca > *cb
		}
	})
	for rank, idx := range order {
		records[idx].MarketCapRank = rank + 1
	}
}

// FundamentalsByTicker indexes records by ticker. A later duplicate replaces an earlier one.
func FundamentalsByTicker(records []models.FundamentalRecord) map[string]models.FundamentalRecord {
	out := make(map[string]models.FundamentalRecord, len(records))
	for _, r := range records {
		out[r.Ticker] = r
	}
	return out
}

// SortPrices orders bars by (ticker, date) in place.
func SortPrices(bars []models.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Ticker != bars[j].Ticker {
			return bars[i].Ticker < bars[j].Ticker
		}
		return bars[i].Date.Before(bars[j].Date)
	})
}

// ColumnGaps is the number of records missing a value in one column
type ColumnGaps struct {
	Column string
	Count  int
}

// MissingFundamentals counts, per ratio column, the records where that ratio is empty.
// Columns come back in file order; columns with no gaps are left out.
func MissingFundamentals(records []models.FundamentalRecord) []ColumnGaps {
	ratios := []struct {
		name string
		get  func(models.FundamentalRecord) *float64
	}{
		{"PER", func(r models.FundamentalRecord) *float64 { return r.PER }},
		{"ROE", func(r models.FundamentalRecord) *float64 { return r.ROE }},
		{"EPS Growth YoY", func(r models.FundamentalRecord) *float64 { return r.EPSGrowthYoY }},
		{"Debt/Equity", func(r models.FundamentalRecord) *float64 { return r.DebtToEquity }},
		{"Net Margin", func(r models.FundamentalRecord) *float64 { return r.NetMargin }},
		{"Dividend Yield", func(r models.FundamentalRecord) *float64 { return r.DividendYield }},
		{"MarketCap", func(r models.FundamentalRecord) *float64 { return r.MarketCap }},
	}

	var out []ColumnGaps
	for _, ratio := range ratios {
		n := 0
		for _, r := range records {
			if ratio.get(r) == nil {
				n++
			}
		}
		if n > 0 {
			out = append(out, ColumnGaps{Column: ratio.name, Count: n})
		}
	}
	return out
}
