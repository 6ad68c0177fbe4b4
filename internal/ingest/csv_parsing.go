// Package ingest reads the raw and cleaned CSV extracts and writes the cleaned ones.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/epeers/marketetl/internal/models"
)

// ErrMalformedInput marks a record or header missing a required field or carrying a mistyped one.
var ErrMalformedInput = errors.New("malformed input")

// MaxTickerLen is the widest ticker the ticker columns of the schema accept.
const MaxTickerLen = 16

// Report summarizes a parse: how many records were kept and which were skipped.
type Report struct {
	Rows      int
	Malformed int
	Warnings  []models.Warning
}

func (rep *Report) skip(rowNum int, err error) {
	rep.Malformed++
	rep.Warnings = append(rep.Warnings, models.Warning{
		Code:    models.WarnMalformedRecord,
		Message: fmt.Sprintf("row %d: %v", rowNum, err),
	})
}

// columns resolves header names case-insensitively. Each logical column may have aliases,
// since raw extracts and cleaned files name some columns differently.
type columns map[string]int

// column names a logical column and the header names it may appear under
type column struct {
	name    string
	aliases []string
}

func readHeader(reader *csv.Reader) (columns, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIdx := make(columns)
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	return colIdx, nil
}

// resolve returns the index of the first alias present in the header.
func (c columns) resolve(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := c[a]; ok {
			return idx, true
		}
	}
	return -1, false
}

// require resolves every column in order and names the first one missing.
func (c columns) require(cols ...column) (map[string]int, error) {
	out := make(map[string]int, len(cols))
	for _, col := range cols {
		idx, ok := c.resolve(col.aliases...)
		if !ok {
			return nil, fmt.Errorf("%w: missing required column: %s", ErrMalformedInput, col.name)
		}
		out[col.name] = idx
	}
	return out, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// isBlank reports whether a cell holds no value. pandas writes missing floats as "nan".
// parseTicker upper-cases a ticker cell and rejects empty or over-long values.
func parseTicker(s string) (string, error) {
	ticker := strings.ToUpper(s)
	switch {
	case ticker == "":
		return "", fmt.Errorf("%w: ticker is empty", ErrMalformedInput)
	case len(ticker) > MaxTickerLen:
		return "", fmt.Errorf("%w: ticker %q longer than %d characters", ErrMalformedInput, ticker, MaxTickerLen)
	}
	return ticker, nil
}

func isBlank(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "n/a", "-":
		return true
	}
	return false
}

func parseFloat(name, s string) (float64, error) {
	if isBlank(s) {
		return 0, fmt.Errorf("%w: %s is empty", ErrMalformedInput, name)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrMalformedInput, name, s)
	}
	return v, nil
}

func parseOptionalFloat(name, s string) (*float64, error) {
	if isBlank(s) {
		return nil, nil
	}
	v, err := parseFloat(name, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// forEachRecord reads records until EOF. Read errors are fatal; fn decides per record.
func forEachRecord(reader *csv.Reader, fn func(rowNum int, record []string)) error {
	rowNum := 1 // header is row 1, data starts at row 2
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("row %d: failed to read CSV record: %w", rowNum+1, err)
		}
		rowNum++
		fn(rowNum, record)
	}
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader
}

// ParseCompaniesCSV parses a company listing.
// Required columns: ticker, name. Optional: sector, industry.
// Rows with an empty ticker are skipped as malformed.
func ParseCompaniesCSV(r io.Reader) ([]models.Company, *Report, error) {
	reader := newReader(r)
	colIdx, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}
	req, err := colIdx.require(
		column{"ticker", []string{"ticker", "symbol"}},
		column{"name", []string{"name", "company"}},
	)
	if err != nil {
		return nil, nil, err
	}
	sectorIdx, _ := colIdx.resolve("sector")
	industryIdx, _ := colIdx.resolve("industry")

	rep := &Report{}
	var companies []models.Company
	err = forEachRecord(reader, func(rowNum int, record []string) {
		ticker, err := parseTicker(field(record, req["ticker"]))
		if err != nil {
			rep.skip(rowNum, err)
			return
		}
		companies = append(companies, models.Company{
			Ticker:   ticker,
			Name:     field(record, req["name"]),
			Sector:   field(record, sectorIdx),
			Industry: field(record, industryIdx),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	rep.Rows = len(companies)
	return companies, rep, nil
}

// ParsePricesCSV parses daily bars. Headers are matched case-insensitively, so both the
// raw lowercase extract and the cleaned Title-case file are accepted.
// Required columns: date, ticker, open, high, low, close, volume.
func ParsePricesCSV(r io.Reader) ([]models.PriceBar, *Report, error) {
	reader := newReader(r)
	colIdx, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}
	req, err := colIdx.require(
		column{"date", []string{"date"}},
		column{"ticker", []string{"ticker", "symbol"}},
		column{"open", []string{"open"}},
		column{"high", []string{"high"}},
		column{"low", []string{"low"}},
		column{"close", []string{"close"}},
		column{"volume", []string{"volume"}},
	)
	if err != nil {
		return nil, nil, err
	}

	rep := &Report{}
	var bars []models.PriceBar
	err = forEachRecord(reader, func(rowNum int, record []string) {
		bar, err := parsePriceRecord(req, record)
		if err != nil {
			rep.skip(rowNum, err)
			return
		}
		bars = append(bars, bar)
	})
	if err != nil {
		return nil, nil, err
	}
	rep.Rows = len(bars)
	return bars, rep, nil
}

func parsePriceRecord(req map[string]int, record []string) (models.PriceBar, error) {
	ticker, err := parseTicker(field(record, req["ticker"]))
	if err != nil {
		return models.PriceBar{}, err
	}
	date, err := models.ParseFlexibleDate(field(record, req["date"]))
	if err != nil {
		return models.PriceBar{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	bar := models.PriceBar{Ticker: ticker, Date: date}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
	} {
		v, err := parseFloat(f.name, field(record, req[f.name]))
		if err != nil {
			return models.PriceBar{}, err
		}
		*f.dst = v
	}

	// volume may be written as a float ("1200.0")
	vol, err := parseFloat("volume", field(record, req["volume"]))
	if err != nil {
		return models.PriceBar{}, err
	}
	bar.Volume = int64(math.Round(vol))
	return bar, nil
}

// fundamentalAliases maps each logical fundamentals column to the header names seen in
// the raw extract and in the cleaned file.
var fundamentalAliases = []column{
	{"per", []string{"per", "pe", "p/e"}},
	{"roe", []string{"roe"}},
	{"eps_growth_yoy", []string{"eps growth yoy", "eps_growth_yoy"}},
	{"debt_to_equity", []string{"deuda/patrimonio", "debt/equity", "debt_to_equity"}},
	{"net_margin", []string{"margen neto", "net margin", "net_margin"}},
	{"dividend_yield", []string{"dividend yield", "dividend_yield"}},
	{"market_cap", []string{"market cap", "market_cap"}},
}

// ParseFundamentalsCSV parses the fundamentals extract.
// Required column: ticker. Ratio columns are optional and empty cells become nil.
// A ratio cell that is present but not numeric makes the record malformed.
func ParseFundamentalsCSV(r io.Reader) ([]models.FundamentalRecord, *Report, error) {
	reader := newReader(r)
	colIdx, err := readHeader(reader)
	if err != nil {
		return nil, nil, err
	}
	req, err := colIdx.require(column{"ticker", []string{"ticker", "symbol"}})
	if err != nil {
		return nil, nil, err
	}
	nameIdx, _ := colIdx.resolve("name", "company")
	rankIdx, _ := colIdx.resolve("ranking marketcap", "market_cap_rank")
	ratioIdx := make(map[string]int, len(fundamentalAliases))
	for _, col := range fundamentalAliases {
		ratioIdx[col.name], _ = colIdx.resolve(col.aliases...)
	}

	rep := &Report{}
	var records []models.FundamentalRecord
	err = forEachRecord(reader, func(rowNum int, record []string) {
		ticker, err := parseTicker(field(record, req["ticker"]))
		if err != nil {
			rep.skip(rowNum, err)
			return
		}
		rec := models.FundamentalRecord{Ticker: ticker, Name: field(record, nameIdx)}
		for _, f := range []struct {
			name string
			dst  **float64
		}{
			{"per", &rec.PER},
			{"roe", &rec.ROE},
			{"eps_growth_yoy", &rec.EPSGrowthYoY},
			{"debt_to_equity", &rec.DebtToEquity},
			{"net_margin", &rec.NetMargin},
			{"dividend_yield", &rec.DividendYield},
			{"market_cap", &rec.MarketCap},
		} {
			v, err := parseOptionalFloat(f.name, field(record, ratioIdx[f.name]))
			if err != nil {
				rep.skip(rowNum, err)
				return
			}
			*f.dst = v
		}
		if s := field(record, rankIdx); !isBlank(s) {
			rank, err := strconv.Atoi(s)
			if err != nil {
				rep.skip(rowNum, fmt.Errorf("%w: invalid market cap rank %q", ErrMalformedInput, s))
				return
			}
			rec.MarketCapRank = rank
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, nil, err
	}
	rep.Rows = len(records)
	return records, rep, nil
}
