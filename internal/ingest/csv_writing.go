package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/epeers/marketetl/internal/models"
)

const dateLayout = "2006-01-02"

var (
	companyHeader     = []string{"Ticker", "Name", "Sector", "Industry"}
	priceHeader       = []string{"Date", "Ticker", "Open", "High", "Low", "Close", "Volume"}
	fundamentalHeader = []string{"Ticker", "Name", "PER", "ROE", "EPS Growth YoY", "Debt/Equity",
		"Net Margin", "Dividend Yield", "Market Cap", "Ranking MarketCap"}
	indicatorHeader = []string{"Date", "Ticker", "SMA_20", "SMA_50", "EMA_20", "RSI_14",
		"MACD", "MACD_Signal", "MACD_Hist", "ATR_14", "OBV", "BB_Middle", "BB_Upper", "BB_Lower",
		"Volatility_20", "Fib_0_0", "Fib_23_6", "Fib_38_2", "Fib_50_0", "Fib_61_8", "Fib_100",
		"Nearest_Fib_Level", "Fib_State"}
	summaryHeader = []string{"Ticker", "Pct_Technical_Buy", "Pct_Fundamental_Buy", "Final_Decision",
		"Bollinger_State", "SMA_vs_EMA", "MACD", "RSI", "PER", "ROE", "EPS Growth YoY",
		"Debt/Equity", "Fib_State"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatOpt writes nil as an empty cell
func formatOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatSignal(s *models.Signal) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func writeAll(w io.Writer, header []string, n int, record func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(record(i)); err != nil {
			return fmt.Errorf("row %d: failed to write CSV record: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCompaniesCSV writes the cleaned company listing
func WriteCompaniesCSV(w io.Writer, companies []models.Company) error {
	return writeAll(w, companyHeader, len(companies), func(i int) []string {
		c := companies[i]
		return []string{c.Ticker, c.Name, c.Sector, c.Industry}
	})
}

// WritePricesCSV writes cleaned daily bars
func WritePricesCSV(w io.Writer, bars []models.PriceBar) error {
	return writeAll(w, priceHeader, len(bars), func(i int) []string {
		b := bars[i]
		return []string{
			b.Date.Format(dateLayout), b.Ticker,
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close),
			strconv.FormatInt(b.Volume, 10),
		}
	})
}

// WriteFundamentalsCSV writes cleaned fundamentals including the market cap rank
func WriteFundamentalsCSV(w io.Writer, records []models.FundamentalRecord) error {
	return writeAll(w, fundamentalHeader, len(records), func(i int) []string {
		r := records[i]
		return []string{
			r.Ticker, r.Name, formatOpt(r.PER), formatOpt(r.ROE), formatOpt(r.EPSGrowthYoY),
			formatOpt(r.DebtToEquity), formatOpt(r.NetMargin), formatOpt(r.DividendYield),
			formatOpt(r.MarketCap), strconv.Itoa(r.MarketCapRank),
		}
	})
}

// WriteIndicatorsCSV writes technical indicator rows. Absent values are empty cells.
func WriteIndicatorsCSV(w io.Writer, rows []models.IndicatorRow) error {
	return writeAll(w, indicatorHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Date.Format(dateLayout), r.Ticker,
			formatOpt(r.SMA20), formatOpt(r.SMA50), formatOpt(r.EMA20), formatOpt(r.RSI14),
			formatOpt(r.MACD), formatOpt(r.MACDSignal), formatOpt(r.MACDHist),
			formatOpt(r.ATR14), formatOpt(r.OBV),
			formatOpt(r.BBMiddle), formatOpt(r.BBUpper), formatOpt(r.BBLower), formatOpt(r.Volatility20),
			formatOpt(r.Fib0), formatOpt(r.Fib236), formatOpt(r.Fib382),
			formatOpt(r.Fib500), formatOpt(r.Fib618), formatOpt(r.Fib100),
			formatOptString(r.NearestFibLevel), formatOptString(r.FibState),
		}
	})
}

// WriteSummaryCSV writes investment summary rows
func WriteSummaryCSV(w io.Writer, rows []models.SummaryRow) error {
	return writeAll(w, summaryHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Ticker, formatOpt(r.PctTechnicalBuy), formatOpt(r.PctFundamentalBuy), string(r.FinalDecision),
			formatOptString(r.BollingerState), formatSignal(r.SMAVsEMASignal), formatSignal(r.MACDSignalLabel),
			formatSignal(r.RSISignalLabel), formatSignal(r.PERSignal), formatSignal(r.ROESignal),
			formatSignal(r.EPSGrowthSignal), formatSignal(r.DebtEquitySignal), formatOptString(r.FibState),
		}
	})
}
