package ingest

import (
	"reflect"
	"testing"
	"time"

	"github.com/epeers/marketetl/internal/models"
)

func TestRound_HalfToEvenOnBinaryValue(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.0625, 2.062},
		{2.0635, 2.064},
		{1.0005, 1.0},
		{2.0005, 2.001},
		{-2.0625, -2.062},
		{10.4996, 10.5},
	}
	for _, tt := range tests {
		if got := Round(tt.in, 3); got != tt.want {
			t.Errorf("Round(%v, 3) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoundPrices(t *testing.T) {
	bars := []models.PriceBar{{Open: 1.23449, High: 2.0005, Low: 0.9994, Close: 1.5, Volume: 7}}
	RoundPrices(bars)
	b := bars[0]
	if b.Open != 1.234 || b.High != 2.001 || b.Low != 0.999 || b.Close != 1.5 {
		t.Errorf("unexpected rounding: %+v", b)
	}
	if b.Volume != 7 {
		t.Errorf("volume should be untouched, got %d", b.Volume)
	}
}

func TestRankByMarketCap(t *testing.T) {
	records := []models.FundamentalRecord{
		{Ticker: "SMALL", MarketCap: models.Float(10)},
		{Ticker: "NONE"},
		{Ticker: "BIG", MarketCap: models.Float(500)},
		{Ticker: "TIE1", MarketCap: models.Float(100)},
		{Ticker: "TIE2", MarketCap: models.Float(100)},
	}
	RankByMarketCap(records)

	want := map[string]int{"BIG": 1, "TIE1": 2, "TIE2": 3, "SMALL": 4, "NONE": 5}
	for _, r := range records {
		if r.MarketCapRank != want[r.Ticker] {
			t.Errorf("%s: got rank %d, want %d", r.Ticker, r.MarketCapRank, want[r.Ticker])
		}
	}
}

func TestFundamentalsByTicker(t *testing.T) {
	m := FundamentalsByTicker([]models.FundamentalRecord{
		{Ticker: "AAA", Name: "first"},
		{Ticker: "AAA", Name: "second"},
		{Ticker: "BBB"},
	})
	if len(m) != 2 || m["AAA"].Name != "second" {
		t.Errorf("unexpected index: %+v", m)
	}
}

func TestSortPrices(t *testing.T) {
	d := func(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }
	bars := []models.PriceBar{
		{Ticker: "BBB", Date: d(1)},
		{Ticker: "AAA", Date: d(3)},
		{Ticker: "AAA", Date: d(2)},
	}
	SortPrices(bars)
	if bars[0].Ticker != "AAA" || !bars[0].Date.Equal(d(2)) || bars[2].Ticker != "BBB" {
		t.Errorf("unexpected order: %+v", bars)
	}
}

func TestMissingFundamentals(t *testing.T) {
	full := models.FundamentalRecord{
		Ticker: "AAA", PER: models.Float(10), ROE: models.Float(0.1), EPSGrowthYoY: models.Float(0.1),
		DebtToEquity: models.Float(20), NetMargin: models.Float(0.2), DividendYield: models.Float(0.01),
		MarketCap: models.Float(1e9),
	}
	gappy := full
	gappy.Ticker = "BBB"
	gappy.PER = nil
	gappy.MarketCap = nil

	got := MissingFundamentals([]models.FundamentalRecord{full, gappy})
	want := []ColumnGaps{{"PER", 1}, {"MarketCap", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected gaps %v in column order, got %v", want, got)
	}
}
