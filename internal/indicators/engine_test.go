package indicators

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/epeers/marketetl/internal/models"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func makeBars(ticker string, closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Ticker: ticker,
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func rising(from, to float64) []float64 {
	var out []float64
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

func TestCompute_SMA20AppearsAtTwentiethBar(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	rows, err := engine.Compute(makeBars("AAA", rising(10, 30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 21 {
		t.Fatalf("expected 21 rows, got %d", len(rows))
	}
	for i := 0; i < 19; i++ {
		if rows[i].SMA20 != nil {
			t.Errorf("row %d: expected absent SMA20, got %f", i+1, *rows[i].SMA20)
		}
	}
	if rows[19].SMA20 == nil || *rows[19].SMA20 != 19.5 {
		t.Errorf("row 20: expected SMA20 19.5, got %v", rows[19].SMA20)
	}
	last := rows[20]
	if last.SMA20 == nil || *last.SMA20 != 20.5 {
		t.Errorf("row 21: expected SMA20 20.5 (mean of bars 2-21), got %v", last.SMA20)
	}
	if last.SMA50 != nil {
		t.Errorf("row 21: expected absent SMA50, got %f", *last.SMA50)
	}
	if last.EMA20 == nil || last.OBV == nil || last.Fib0 == nil {
		t.Error("row 21: expected EMA20, OBV and Fibonacci levels to be defined")
	}
	if rows[0].OBV == nil || *rows[0].OBV != 0 {
		t.Errorf("row 1: expected OBV 0, got %v", rows[0].OBV)
	}
	if rows[13].RSI14 != nil || rows[14].RSI14 == nil || *rows[14].RSI14 != RSISentinel {
		t.Errorf("expected RSI to first appear at row 15 with sentinel value")
	}
}

func TestCompute_ATRAndVolatilityWarmUp(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	rows, err := engine.Compute(makeBars("AAA", rising(10, 30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// every bar spans close-1..close+1 and closes one above the last: TR is 2 throughout
	for i := 0; i < 13; i++ {
		if rows[i].ATR14 != nil {
			t.Errorf("row %d: expected absent ATR14, got %f", i+1, *rows[i].ATR14)
		}
	}
	for i := 13; i < len(rows); i++ {
		if rows[i].ATR14 == nil {
			t.Fatalf("row %d: expected ATR14", i+1)
		}
		assertClose(t, "atr14", *rows[i].ATR14, 2)
	}

	for i := 0; i < 19; i++ {
		if rows[i].Volatility20 != nil {
			t.Errorf("row %d: expected absent Volatility20, got %f", i+1, *rows[i].Volatility20)
		}
	}
	// sample variance of 20 consecutive integers is 20*21/12 = 35
	for i := 19; i < len(rows); i++ {
		if rows[i].Volatility20 == nil {
			t.Fatalf("row %d: expected Volatility20", i+1)
		}
		assertClose(t, "volatility20", *rows[i].Volatility20, math.Sqrt(35))
	}
}

func TestCompute_KeepsDatesAndTicker(t *testing.T) {
	bars := makeBars("BBB", rising(1, 5))
	rows, err := NewEngine(EngineConfig{}).Compute(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range bars {
		if rows[i].Ticker != "BBB" || !rows[i].Date.Equal(bars[i].Date) {
			t.Errorf("row %d: got %s %v", i, rows[i].Ticker, rows[i].Date)
		}
	}
}

func TestCompute_IsCausal(t *testing.T) {
	closes := []float64{10, 12, 11, 14, 13, 15, 18, 16, 17, 19, 22, 21, 20, 23, 25, 24, 26, 28, 27, 29, 31, 30, 33}
	engine := NewEngine(EngineConfig{})
	full, err := engine.Compute(makeBars("CCC", closes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prefix, err := engine.Compute(makeBars("CCC", closes[:21]))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range prefix {
		pairs := []struct {
			name string
			a, b *float64
		}{
			{"sma20", full[i].SMA20, prefix[i].SMA20},
			{"ema20", full[i].EMA20, prefix[i].EMA20},
			{"rsi14", full[i].RSI14, prefix[i].RSI14},
			{"macd", full[i].MACD, prefix[i].MACD},
			{"atr14", full[i].ATR14, prefix[i].ATR14},
			{"bb_upper", full[i].BBUpper, prefix[i].BBUpper},
			{"fib_0_0", full[i].Fib0, prefix[i].Fib0},
		}
		for _, p := range pairs {
			if (p.a == nil) != (p.b == nil) {
				t.Fatalf("row %d %s: presence differs between prefix and full series", i, p.name)
			}
			if p.a != nil && *p.a != *p.b {
				t.Errorf("row %d %s: %f vs %f", i, p.name, *p.a, *p.b)
			}
		}
	}
}

func TestCompute_UnsortedInput(t *testing.T) {
	bars := makeBars("DDD", rising(1, 5))
	bars[2], bars[3] = bars[3], bars[2]
	_, err := NewEngine(EngineConfig{}).Compute(bars)
	if !errors.Is(err, ErrUnsortedInput) {
		t.Fatalf("expected ErrUnsortedInput, got %v", err)
	}
}

func TestCompute_DuplicateDate(t *testing.T) {
	bars := makeBars("EEE", rising(1, 3))
	bars[2].Date = bars[1].Date
	_, err := NewEngine(EngineConfig{}).Compute(bars)
	if !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}
}

func TestCompute_MixedSecurities(t *testing.T) {
	bars := append(makeBars("AAA", rising(1, 2)), makeBars("BBB", rising(3, 4))...)
	_, err := NewEngine(EngineConfig{}).Compute(bars)
	if !errors.Is(err, ErrMixedSecurities) {
		t.Fatalf("expected ErrMixedSecurities, got %v", err)
	}
}

func TestComputeAll_IsolatesFailures(t *testing.T) {
	good := makeBars("GOOD", rising(1, 25))
	bad := makeBars("BAD", rising(1, 5))
	bad[0], bad[4] = bad[4], bad[0]

	// interleave to make sure grouping does not depend on contiguity
	var input []models.PriceBar
	for i := range good {
		input = append(input, good[i])
		if i < len(bad) {
			input = append(input, bad[i])
		}
	}

	res, err := NewEngine(EngineConfig{Workers: 2}).ComputeAll(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Ticker != "BAD" {
		t.Fatalf("expected BAD to fail alone, got %+v", res.Failures)
	}
	if !errors.Is(res.Failures[0].Err, ErrUnsortedInput) {
		t.Errorf("expected ErrUnsortedInput, got %v", res.Failures[0].Err)
	}
	if len(res.Rows) != len(good) {
		t.Fatalf("expected %d rows for GOOD, got %d", len(good), len(res.Rows))
	}
	for _, r := range res.Rows {
		if r.Ticker != "GOOD" {
			t.Errorf("unexpected row for %s", r.Ticker)
		}
	}
}

func TestComputeAll_SeriesAreIndependent(t *testing.T) {
	a := makeBars("AAA", rising(1, 30))
	b := makeBars("BBB", rising(100, 129))
	res, err := NewEngine(EngineConfig{}).ComputeAll(context.Background(), append(b, a...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 60 {
		t.Fatalf("expected 60 rows, got %d", len(res.Rows))
	}
	// ordered by ticker then date; each series starts its own OBV and SMA windows
	if res.Rows[0].Ticker != "AAA" || res.Rows[30].Ticker != "BBB" {
		t.Fatalf("unexpected ordering: %s, %s", res.Rows[0].Ticker, res.Rows[30].Ticker)
	}
	if *res.Rows[30].OBV != 0 {
		t.Errorf("BBB OBV should reset to 0, got %f", *res.Rows[30].OBV)
	}
	if res.Rows[30+18].SMA20 != nil {
		t.Error("BBB SMA20 should be absent for its first 19 rows")
	}
	if got := *res.Rows[30+19].SMA20; got != 109.5 {
		t.Errorf("BBB SMA20 at row 20: got %f, want 109.5", got)
	}
}

func TestComputeAll_SortInput(t *testing.T) {
	bars := makeBars("AAA", rising(1, 5))
	bars[0], bars[4] = bars[4], bars[0]
	res, err := NewEngine(EngineConfig{SortInput: true}).ComputeAll(context.Background(), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failures) != 0 || len(res.Rows) != 5 {
		t.Fatalf("expected sorted input to succeed, got %d rows and %+v", len(res.Rows), res.Failures)
	}
	if !res.Rows[0].Date.Equal(day0) {
		t.Errorf("expected first row on %v, got %v", day0, res.Rows[0].Date)
	}
}

func TestComputeAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(EngineConfig{}).ComputeAll(ctx, makeBars("AAA", rising(1, 3)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
