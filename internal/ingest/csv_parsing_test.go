package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/epeers/marketetl/internal/models"
)

func TestParseCompaniesCSV_HappyPath(t *testing.T) {
	csv := "Ticker,Name,Sector,Industry,Market Cap\nAAPL,Apple Inc.,Technology,Consumer Electronics,3e12\nMSFT,Microsoft,Technology,Software,2.9e12\n"
	companies, rep, err := ParseCompaniesCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 2 || rep.Rows != 2 || rep.Malformed != 0 {
		t.Fatalf("expected 2 companies and no malformed rows, got %d / %+v", len(companies), rep)
	}
	want := models.Company{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Technology", Industry: "Consumer Electronics"}
	if companies[0] != want {
		t.Errorf("unexpected first company: %+v", companies[0])
	}
}

func TestParseCompaniesCSV_MissingColumn(t *testing.T) {
	_, _, err := ParseCompaniesCSV(strings.NewReader("Ticker,Sector\nAAPL,Tech\n"))
	if err == nil {
		t.Fatal("expected error for missing column")
	}
	if !errors.Is(err, ErrMalformedInput) || !strings.Contains(err.Error(), "name") {
		t.Errorf("expected malformed error mentioning name, got: %v", err)
	}
}

func TestParseCompaniesCSV_EmptyTickerSkipped(t *testing.T) {
	companies, rep, err := ParseCompaniesCSV(strings.NewReader("ticker,name\n,Nameless\nIBM,IBM\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 1 || rep.Malformed != 1 {
		t.Fatalf("expected 1 company and 1 malformed row, got %d / %d", len(companies), rep.Malformed)
	}
	if !strings.Contains(rep.Warnings[0].Message, "row 2") || rep.Warnings[0].Code != models.WarnMalformedRecord {
		t.Errorf("unexpected warning: %+v", rep.Warnings[0])
	}
}

func TestParsePricesCSV_RawLowercaseHeaders(t *testing.T) {
	csv := "date,ticker,open,high,low,close,volume\n" +
		"2024-01-02 00:00:00,aapl,185.1234,186.5,184.0,185.6,52000000.0\n" +
		"2024-01-03,AAPL,185.6,187,185,186.2,48000000\n"
	bars, rep, err := ParsePricesCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 || rep.Malformed != 0 {
		t.Fatalf("expected 2 bars, got %d (malformed %d)", len(bars), rep.Malformed)
	}
	b := bars[0]
	if b.Ticker != "AAPL" || !b.Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected key: %s %v", b.Ticker, b.Date)
	}
	if b.Open != 185.1234 || b.Volume != 52000000 {
		t.Errorf("unexpected values: %+v", b)
	}
}

func TestParsePricesCSV_MalformedRowsContinue(t *testing.T) {
	csv := "Date,Ticker,Open,High,Low,Close,Volume\n" +
		"2024-01-02,AAA,1,2,0.5,1.5,100\n" +
		"not-a-date,AAA,1,2,0.5,1.5,100\n" +
		"2024-01-04,AAA,1,abc,0.5,1.5,100\n" +
		"2024-01-05,AAA,1,2,0.5,,100\n" +
		"2024-01-06,AAA,1,2,0.5,1.7,200\n"
	bars, rep, err := ParsePricesCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 good bars, got %d", len(bars))
	}
	if rep.Malformed != 3 || len(rep.Warnings) != 3 {
		t.Fatalf("expected 3 malformed rows, got %d", rep.Malformed)
	}
	for i, row := range []string{"row 3", "row 4", "row 5"} {
		if !strings.HasPrefix(rep.Warnings[i].Message, row) {
			t.Errorf("warning %d: expected %s, got %s", i, row, rep.Warnings[i].Message)
		}
	}
}

func TestParsePricesCSV_MissingVolume(t *testing.T) {
	_, _, err := ParsePricesCSV(strings.NewReader("date,ticker,open,high,low,close\n"))
	if err == nil || !strings.Contains(err.Error(), "volume") {
		t.Fatalf("expected missing volume column error, got %v", err)
	}
}

func TestParseFundamentalsCSV_RawHeaders(t *testing.T) {
	csv := "Ticker,Name,PER,ROE,EPS Growth YoY,Deuda/Patrimonio,Margen Neto,Dividend Yield,Market Cap\n" +
		"AAA,Alpha,15,0.2,0.12,50,0.3,0.01,1000\n" +
		"BBB,Beta,nan,,-0.05,250,,,2000\n" +
		"CCC,Gamma,high,0.1,0.1,10,0.1,0,10\n"
	records, rep, err := ParseFundamentalsCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || rep.Malformed != 1 {
		t.Fatalf("expected 2 records and 1 malformed, got %d / %d", len(records), rep.Malformed)
	}
	a := records[0]
	if *a.PER != 15 || *a.ROE != 0.2 || *a.EPSGrowthYoY != 0.12 || *a.DebtToEquity != 50 || *a.MarketCap != 1000 {
		t.Errorf("unexpected AAA values: %+v", a)
	}
	b := records[1]
	if b.PER != nil || b.ROE != nil || b.NetMargin != nil {
		t.Errorf("expected blank BBB ratios to be nil: %+v", b)
	}
	if *b.DebtToEquity != 250 {
		t.Errorf("expected BBB debt/equity 250, got %v", *b.DebtToEquity)
	}
}

func TestFundamentalsRoundTrip(t *testing.T) {
	in := []models.FundamentalRecord{
		{Ticker: "AAA", Name: "Alpha", PER: models.Float(15), MarketCap: models.Float(1000), MarketCapRank: 1},
		{Ticker: "BBB", Name: "Beta, Inc.", ROE: models.Float(0.05), MarketCapRank: 2},
	}
	var buf bytes.Buffer
	if err := WriteFundamentalsCSV(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, rep, err := ParseFundamentalsCSV(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rep.Malformed != 0 || len(out) != 2 {
		t.Fatalf("expected 2 clean records, got %d (malformed %d)", len(out), rep.Malformed)
	}
	if out[1].Name != "Beta, Inc." || out[1].MarketCapRank != 2 || *out[1].ROE != 0.05 || out[1].PER != nil {
		t.Errorf("unexpected second record: %+v", out[1])
	}
}

func TestWriteIndicatorsCSV_AbsentIsEmpty(t *testing.T) {
	state := models.FibBetweenLevels
	rows := []models.IndicatorRow{{
		Ticker: "AAA", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EMA20: models.Float(10.5), OBV: models.Float(0), FibState: &state,
	}}
	var buf bytes.Buffer
	if err := WriteIndicatorsCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if lines[1] != "2024-01-02,AAA,,,10.5,,,,,,0,,,,,,,,,,,,between levels" {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestParseCSV_OverlongTickerSkipped(t *testing.T) {
	long := strings.Repeat("X", MaxTickerLen+1)

	companies, rep, err := ParseCompaniesCSV(strings.NewReader("Ticker,Name\n" + long + ",Too Long\nIBM,IBM\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 1 || rep.Malformed != 1 || !strings.Contains(rep.Warnings[0].Message, "longer than 16") {
		t.Errorf("expected the long company ticker to be skipped, got %d / %+v", len(companies), rep)
	}

	bars, rep, err := ParsePricesCSV(strings.NewReader("date,ticker,open,high,low,close,volume\n" +
		"2024-01-02," + long + ",1,2,0.5,1.5,100\n" +
		"2024-01-02," + strings.Repeat("Y", MaxTickerLen) + ",1,2,0.5,1.5,100\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 || rep.Malformed != 1 {
		t.Errorf("expected a 16-character ticker kept and a 17-character one skipped, got %d / %d", len(bars), rep.Malformed)
	}

	records, rep, err := ParseFundamentalsCSV(strings.NewReader("Ticker,PER\n" + long + ",12\nAAA,15\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || rep.Malformed != 1 {
		t.Errorf("expected the long fundamentals ticker to be skipped, got %d / %d", len(records), rep.Malformed)
	}
}

func TestParseCSV_ErrorsAreStable(t *testing.T) {
	// several bad cells in one record: the first in column order is reported, every time
	for i := 0; i < 20; i++ {
		_, rep, err := ParsePricesCSV(strings.NewReader("date,ticker,open,high,low,close,volume\n" +
			"2024-01-02,AAA,x,y,z,w,100\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rep.Malformed != 1 || !strings.Contains(rep.Warnings[0].Message, `invalid open "x"`) {
			t.Fatalf("expected the open column to be reported, got %+v", rep.Warnings)
		}

		_, rep, err = ParseFundamentalsCSV(strings.NewReader("Ticker,PER,ROE,Market Cap\nAAA,a,b,c\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rep.Malformed != 1 || !strings.Contains(rep.Warnings[0].Message, `invalid per "a"`) {
			t.Fatalf("expected the per column to be reported, got %+v", rep.Warnings)
		}

		_, _, err = ParsePricesCSV(strings.NewReader("ticker,volume\nAAA,1\n"))
		if err == nil || !strings.Contains(err.Error(), "missing required column: date") {
			t.Fatalf("expected the first missing column to be named, got %v", err)
		}
	}
}
