// Package summary fuses the latest technical indicators, the latest close and the
// fundamental ratios of each security into one BUY/SELL/HOLD recommendation.
package summary

import (
	"sort"

	"github.com/epeers/marketetl/internal/models"
	"github.com/shopspring/decimal"
)

// Result is the outcome of Summarize
type Result struct {
	Rows []models.SummaryRow
	// Excluded lists tickers that had indicators or prices but no complete join.
	Excluded []string
}

// LatestByTicker projects rows onto the most recent row per ticker.
func LatestByTicker[T models.Dated](rows []T) map[string]T {
	latest := make(map[string]T)
	for _, r := range rows {
		cur, ok := latest[r.SecurityKey()]
		if !ok || r.RowDate().After(cur.RowDate()) {
			latest[r.SecurityKey()] = r
		}
	}
	return latest
}

// BuyPercentage returns the share of evaluated signals that are BUY, in percent,
// rounded to 2 decimals. Nil signals are not evaluated. Nil when nothing was evaluated.
func BuyPercentage(signals ...*models.Signal) *float64 {
	evaluated, buys := 0, 0
	for _, s := range signals {
		if s == nil {
			continue
		}
		evaluated++
		if *s == models.SignalBuy {
			buys++
		}
	}
	if evaluated == 0 {
		return nil
	}
	pct := decimal.NewFromInt(int64(buys)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(evaluated))).
		Round(2).
		InexactFloat64()
	return &pct
}

// Evaluate builds the summary for one security from its latest indicator row,
// its latest price bar and its fundamentals.
func Evaluate(ind models.IndicatorRow, price models.PriceBar, fund models.FundamentalRecord) models.SummaryRow {
	row := models.SummaryRow{
		Ticker:           ind.Ticker,
		SMAVsEMASignal:   SMAVsEMA(ind),
		MACDSignalLabel:  MACDCross(ind),
		RSISignalLabel:   RSI(ind),
		PERSignal:        PER(fund),
		ROESignal:        ROE(fund),
		EPSGrowthSignal:  EPSGrowth(fund),
		DebtEquitySignal: DebtEquity(fund),
		FibState:         ind.FibState,
	}
	row.PctTechnicalBuy = BuyPercentage(row.SMAVsEMASignal, row.MACDSignalLabel, row.RSISignalLabel)
	row.PctFundamentalBuy = BuyPercentage(row.PERSignal, row.ROESignal, row.EPSGrowthSignal, row.DebtEquitySignal)
	row.FinalDecision = Decide(row.PctTechnicalBuy, row.PctFundamentalBuy)

	last := price.Close
	row.BollingerState = BollingerState(&last, ind)
	return row
}

// Summarize inner-joins the latest indicator row and latest price per ticker with
// the fundamentals. Tickers missing any of the three are excluded. Rows are sorted
// by ticker so identical inputs always produce identical output.
func Summarize(indicators []models.IndicatorRow, prices []models.PriceBar, fundamentals map[string]models.FundamentalRecord) Result {
	latestInd := LatestByTicker(indicators)
	latestPrice := LatestByTicker(prices)

	seen := make(map[string]struct{}, len(latestInd)+len(latestPrice))
	for t := range latestInd {
		seen[t] = struct{}{}
	}
	for t := range latestPrice {
		seen[t] = struct{}{}
	}
	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var res Result
	for _, t := range tickers {
		ind, okInd := latestInd[t]
		price, okPrice := latestPrice[t]
		fund, okFund := fundamentals[t]
		if !okInd || !okPrice || !okFund {
			res.Excluded = append(res.Excluded, t)
			continue
		}
		res.Rows = append(res.Rows, Evaluate(ind, price, fund))
	}
	return res
}
