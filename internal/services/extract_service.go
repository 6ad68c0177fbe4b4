package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/epeers/marketetl/internal/alphavantage"
	"github.com/epeers/marketetl/internal/ingest"
	"github.com/epeers/marketetl/internal/models"
	log "github.com/sirupsen/logrus"
)

// ErrNothingExtracted is returned when no requested ticker could be fetched
var ErrNothingExtracted = errors.New("no ticker could be fetched")

// MarketSource fetches raw market data for one ticker
type MarketSource interface {
	GetDailyPrices(ctx context.Context, symbol string, outputSize string) ([]models.PriceBar, error)
	GetOverview(ctx context.Context, symbol string) (*models.Company, *models.FundamentalRecord, error)
}

// ExtractReport describes the outcome of one extract
type ExtractReport struct {
	Tickers   int
	Companies int
	Prices    int
	Failed    []models.SecurityFailure
	Warnings  []models.Warning
}

// ExtractService refreshes the raw extracts in RAW_DIR from a market data source
type ExtractService struct {
	source MarketSource
	rawDir string
}

// NewExtractService creates a new ExtractService
func NewExtractService(source MarketSource, rawDir string) *ExtractService {
	return &ExtractService{source: source, rawDir: rawDir}
}

// Extract fetches the profile, ratios and daily bars of every ticker and replaces the
// three raw extracts. With no tickers the current raw company listing is refreshed.
// A ticker that fails is left out; throttling or cancellation aborts without writing.
func (s *ExtractService) Extract(ctx context.Context, tickers []string, outputSize string) (*ExtractReport, error) {
	defer TrackTime("Extract", time.Now())
	ctx, wc := NewWarningContext(ctx)

	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		var err error
		if tickers, err = s.listedTickers(); err != nil {
			return nil, err
		}
	}

	rep := &ExtractReport{Tickers: len(tickers)}
	var (
		companies    []models.Company
		fundamentals []models.FundamentalRecord
		prices       []models.PriceBar
	)

	for i, ticker := range tickers {
		company, funds, err := s.source.GetOverview(ctx, ticker)
		if err == nil {
			var bars []models.PriceBar
			bars, err = s.source.GetDailyPrices(ctx, ticker, outputSize)
			if err == nil {
				companies = append(companies, *company)
				fundamentals = append(fundamentals, *funds)
				prices = append(prices, bars...)
				log.Debugf("Extracted %s (%d/%d): %d bars", ticker, i+1, len(tickers), len(bars))
				continue
			}
		}

		if errors.Is(err, alphavantage.ErrThrottled) || ctx.Err() != nil {
			return nil, fmt.Errorf("extract stopped at %s (%d/%d): %w", ticker, i+1, len(tickers), err)
		}
		rep.Failed = append(rep.Failed, models.SecurityFailure{Ticker: ticker, Reason: err.Error()})
		Warnf(ctx, models.WarnSecurityFailed, "%s not extracted: %v", ticker, err)
	}
	rep.Warnings = wc.GetWarnings()

	if len(companies) == 0 {
		return rep, ErrNothingExtracted
	}

	writes := []struct {
		name  string
		write func(io.Writer) error
	}{
		{RawCompaniesFile, func(w io.Writer) error { return ingest.WriteCompaniesCSV(w, companies) }},
		{RawPricesFile, func(w io.Writer) error { return ingest.WritePricesCSV(w, prices) }},
		{RawFundamentalsFile, func(w io.Writer) error { return ingest.WriteFundamentalsCSV(w, fundamentals) }},
	}
	for _, f := range writes {
		if err := writeFile(s.rawDir, f.name, f.write); err != nil {
			return rep, err
		}
	}

	rep.Companies = len(companies)
	rep.Prices = len(prices)
	log.Infof("Extracted %d of %d tickers, %d bars", rep.Companies, rep.Tickers, rep.Prices)
	return rep, nil
}

// listedTickers reads the tickers of the current raw company listing
func (s *ExtractService) listedTickers() ([]string, error) {
	f, err := os.Open(filepath.Join(s.rawDir, RawCompaniesFile))
	if err != nil {
		return nil, fmt.Errorf("no tickers given and no company listing to refresh: %w", err)
	}
	defer f.Close()

	companies, _, err := ingest.ParseCompaniesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", RawCompaniesFile, err)
	}
	tickers := make([]string, len(companies))
	for i, c := range companies {
		tickers[i] = c.Ticker
	}
	return normalizeTickers(tickers), nil
}

// normalizeTickers upper-cases, trims and de-duplicates, keeping the first occurrence
func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
