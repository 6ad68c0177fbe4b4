package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/epeers/marketetl/internal/indicators"
	"github.com/epeers/marketetl/internal/ingest"
	"github.com/epeers/marketetl/internal/loader"
	"github.com/epeers/marketetl/internal/metrics"
	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/summary"
	"github.com/epeers/marketetl/internal/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Input extracts in RAW_DIR
const (
	RawCompaniesFile    = "top_500_marketcap.csv"
	RawPricesFile       = "nyse_top500_data.csv"
	RawFundamentalsFile = "nyse_top_500_fundamentals_indicators.csv"
)

// Cleaned and derived files in READY_DIR
const (
	ReadyCompaniesFile    = "empresas_ready.csv"
	ReadyPricesFile       = "precios_historicos_ready.csv"
	ReadyFundamentalsFile = "indicadores_fundamentales_ready.csv"
	ReadyIndicatorsFile   = "indicadores_tecnicos_ready.csv"
	ReadySummaryFile      = "resumen_inversion_ready.csv"
)

var (
	// ErrRunInProgress is returned when a run is requested while another one is active
	ErrRunInProgress = errors.New("a pipeline run is already in progress")
	// ErrUnknownExtract is returned for an upload of an extract kind the pipeline does not read
	ErrUnknownExtract = errors.New("unknown extract kind")
)

// rawExtracts maps upload kinds to the raw file each one replaces
var rawExtracts = map[string]struct {
	file     string
	validate func(io.Reader) (*ingest.Report, error)
}{
	"companies": {RawCompaniesFile, func(r io.Reader) (*ingest.Report, error) {
		_, rep, err := ingest.ParseCompaniesCSV(r)
		return rep, err
	}},
	"prices": {RawPricesFile, func(r io.Reader) (*ingest.Report, error) {
		_, rep, err := ingest.ParsePricesCSV(r)
		return rep, err
	}},
	"fundamentals": {RawFundamentalsFile, func(r io.Reader) (*ingest.Report, error) {
		_, rep, err := ingest.ParseFundamentalsCSV(r)
		return rep, err
	}},
}

// CompanyStore persists the company listing
type CompanyStore interface {
	Upsert(ctx context.Context, companies []models.Company) error
}

// PriceStore persists daily bars incrementally
type PriceStore interface {
	loader.Sink[models.PriceBar]
	GetLatestAll(ctx context.Context) ([]models.PriceBar, error)
}

// FundamentalStore persists fundamentals with full replace
type FundamentalStore interface {
	Upsert(ctx context.Context, records []models.FundamentalRecord) error
	GetAll(ctx context.Context) (map[string]models.FundamentalRecord, error)
}

// IndicatorStore persists indicator rows incrementally
type IndicatorStore interface {
	loader.Sink[models.IndicatorRow]
	GetLatestAll(ctx context.Context) ([]models.IndicatorRow, error)
}

// SummaryStore persists the investment summary with full replace
type SummaryStore interface {
	Upsert(ctx context.Context, rows []models.SummaryRow) error
}

// Stores groups the sinks the pipeline writes to
type Stores struct {
	Companies    CompanyStore
	Prices       PriceStore
	Fundamentals FundamentalStore
	Indicators   IndicatorStore
	Summaries    SummaryStore
}

// PipelineConfig holds the directories the pipeline reads and writes
type PipelineConfig struct {
	RawDir   string
	ReadyDir string
	// SortInput orders price bars by (ticker, date) after parsing. Without it an
	// out-of-order series fails its security instead of being repaired.
	SortInput bool
}

// PipelineService runs the transform and load steps
type PipelineService struct {
	cfg     PipelineConfig
	stores  Stores
	engine  *indicators.Engine
	loader  *loader.Loader
	metrics *metrics.Metrics
	onLoad  func()
	now     func() time.Time
	running sync.Mutex
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(cfg PipelineConfig, stores Stores, engine *indicators.Engine, ld *loader.Loader, m *metrics.Metrics) *PipelineService {
	return &PipelineService{
		cfg:     cfg,
		stores:  stores,
		engine:  engine,
		loader:  ld,
		metrics: m,
		now:     time.Now,
	}
}

// OnLoad registers fn to run after every successful load, e.g. to drop read caches
func (s *PipelineService) OnLoad(fn func()) {
	s.onLoad = fn
}

// StoreRaw validates an uploaded extract and replaces the matching file in RAW_DIR.
// The file is rejected when its header is unusable; malformed records are only counted,
// as the next run will skip them anyway. Uploads are refused while a run is active.
func (s *PipelineService) StoreRaw(kind string, data []byte) (*ingest.Report, error) {
	extract, ok := rawExtracts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtract, kind)
	}
	// a run reads the raw files one after another; replacing one mid-run would mix extracts
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	rep, err := extract.validate(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := writeFile(s.cfg.RawDir, extract.file, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return nil, err
	}
	log.Infof("Stored %s extract: %d records, %d malformed", kind, rep.Rows, rep.Malformed)
	return rep, nil
}

// dataset is the cleaned and derived data of one run
type dataset struct {
	companies    []models.Company
	prices       []models.PriceBar
	fundamentals []models.FundamentalRecord
	indicators   []models.IndicatorRow
	summaries    []models.SummaryRow
}

// Transform cleans the raw extracts, derives indicators and the summary, and writes
// every result to READY_DIR. Nothing is written to the database.
func (s *PipelineService) Transform(ctx context.Context) (*models.RunReport, error) {
	return s.exclusive(ctx, "transform", func(ctx context.Context, rep *models.RunReport) error {
		_, err := s.transform(ctx, rep)
		return err
	})
}

// Load reads the cleaned files in READY_DIR, re-derives indicators and the summary
// from them, and loads everything into the database.
func (s *PipelineService) Load(ctx context.Context) (*models.RunReport, error) {
	return s.exclusive(ctx, "load", func(ctx context.Context, rep *models.RunReport) error {
		ds, err := s.readReady(ctx, rep)
		if err != nil {
			return err
		}
		return s.load(ctx, rep, ds)
	})
}

// Run performs Transform followed by the load of its in-memory result
func (s *PipelineService) Run(ctx context.Context) (*models.RunReport, error) {
	return s.exclusive(ctx, "run", func(ctx context.Context, rep *models.RunReport) error {
		ds, err := s.transform(ctx, rep)
		if err != nil {
			return err
		}
		return s.load(ctx, rep, ds)
	})
}

// Summarize recomputes the investment summary from the latest persisted indicator rows,
// prices and fundamentals, and replaces the stored summary.
func (s *PipelineService) Summarize(ctx context.Context) (*models.RunReport, error) {
	return s.exclusive(ctx, "summarize", func(ctx context.Context, rep *models.RunReport) error {
		inds, err := s.stores.Indicators.GetLatestAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to read latest indicators: %w", err)
		}
		prices, err := s.stores.Prices.GetLatestAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to read latest prices: %w", err)
		}
		funds, err := s.stores.Fundamentals.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to read fundamentals: %w", err)
		}

		rows := s.summarize(ctx, inds, prices, funds)
		if err := s.stores.Summaries.Upsert(ctx, rows); err != nil {
			return fmt.Errorf("failed to load investment_summary: %w", err)
		}
		rep.Summaries = len(rows)
		s.metrics.RowsLoaded.WithLabelValues("investment_summary").Add(float64(len(rows)))
		s.loaded()
		return nil
	})
}

// exclusive runs fn with a fresh report and warning collector, one run at a time
func (s *PipelineService) exclusive(ctx context.Context, step string, fn func(context.Context, *models.RunReport) error) (*models.RunReport, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	rep := &models.RunReport{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	ctx, wc := NewWarningContext(ctx)
	logger := log.WithFields(log.Fields{"run_id": rep.RunID, "step": step})
	logger.Info("Pipeline started")

	err := fn(ctx, rep)

	rep.DurationMs = time.Since(start).Milliseconds()
	rep.Warnings = wc.GetWarnings()
	s.metrics.ObserveStep(step, start)
	s.metrics.RunFinished(err)

	if err != nil {
		logger.WithError(err).Error("Pipeline failed")
		return rep, err
	}
	logger.WithFields(log.Fields{
		"duration_ms": rep.DurationMs,
		"prices":      rep.PricesLoaded,
		"indicators":  rep.IndicatorsLoaded,
		"summaries":   rep.Summaries,
		"failed":      len(rep.Failed),
		"warnings":    len(rep.Warnings),
	}).Info("Pipeline finished")
	return rep, nil
}

func (s *PipelineService) transform(ctx context.Context, rep *models.RunReport) (*dataset, error) {
	defer TrackTime("Transform", time.Now())

	ds := &dataset{}
	var err error

	if ds.companies, err = parseFile(ctx, s, s.cfg.RawDir, RawCompaniesFile, rep, ingest.ParseCompaniesCSV); err != nil {
		return nil, err
	}
	if ds.prices, err = parseFile(ctx, s, s.cfg.RawDir, RawPricesFile, rep, ingest.ParsePricesCSV); err != nil {
		return nil, err
	}
	ingest.RoundPrices(ds.prices)
	if s.cfg.SortInput {
		ingest.SortPrices(ds.prices)
	}

	if ds.fundamentals, err = parseFile(ctx, s, s.cfg.RawDir, RawFundamentalsFile, rep, ingest.ParseFundamentalsCSV); err != nil {
		return nil, err
	}
	ingest.RankByMarketCap(ds.fundamentals)

	if err := s.derive(ctx, rep, ds); err != nil {
		return nil, err
	}

	writes := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ReadyCompaniesFile, func(w io.Writer) error { return ingest.WriteCompaniesCSV(w, ds.companies) }},
		{ReadyPricesFile, func(w io.Writer) error { return ingest.WritePricesCSV(w, ds.prices) }},
		{ReadyFundamentalsFile, func(w io.Writer) error { return ingest.WriteFundamentalsCSV(w, ds.fundamentals) }},
		{ReadyIndicatorsFile, func(w io.Writer) error { return ingest.WriteIndicatorsCSV(w, ds.indicators) }},
		{ReadySummaryFile, func(w io.Writer) error { return ingest.WriteSummaryCSV(w, ds.summaries) }},
	}
	for _, f := range writes {
		if err := writeFile(s.cfg.ReadyDir, f.name, f.write); err != nil {
			return nil, err
		}
	}
	log.Infof("Wrote %d ready files to %s", len(writes), s.cfg.ReadyDir)
	return ds, nil
}

// readReady loads the cleaned base files and derives indicators and the summary from them
func (s *PipelineService) readReady(ctx context.Context, rep *models.RunReport) (*dataset, error) {
	defer TrackTime("ReadReady", time.Now())

	ds := &dataset{}
	var err error
	if ds.companies, err = parseFile(ctx, s, s.cfg.ReadyDir, ReadyCompaniesFile, rep, ingest.ParseCompaniesCSV); err != nil {
		return nil, err
	}
	if ds.prices, err = parseFile(ctx, s, s.cfg.ReadyDir, ReadyPricesFile, rep, ingest.ParsePricesCSV); err != nil {
		return nil, err
	}
	if s.cfg.SortInput {
		ingest.SortPrices(ds.prices)
	}
	if ds.fundamentals, err = parseFile(ctx, s, s.cfg.ReadyDir, ReadyFundamentalsFile, rep, ingest.ParseFundamentalsCSV); err != nil {
		return nil, err
	}
	if err := s.derive(ctx, rep, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// derive computes indicator rows for every security and the summary on top of them
func (s *PipelineService) derive(ctx context.Context, rep *models.RunReport, ds *dataset) error {
	rep.PricesRead = len(ds.prices)
	s.checkFreshness(ctx, ds.prices)
	for _, gap := range ingest.MissingFundamentals(ds.fundamentals) {
		Warnf(ctx, models.WarnMissingColumnValue, "fundamentals: %s empty for %d tickers, stored as NULL", gap.Column, gap.Count)
	}

	start := time.Now()
	res, err := s.engine.ComputeAll(ctx, ds.prices)
	if err != nil {
		return err
	}
	s.metrics.ObserveStep("indicators", start)

	for _, f := range res.Failures {
		rep.Failed = append(rep.Failed, models.SecurityFailure{Ticker: f.Ticker, Reason: f.Err.Error()})
		Warnf(ctx, models.WarnSecurityFailed, "indicators for %s not derived: %v", f.Ticker, f.Err)
	}
	s.metrics.SecurityFail.Add(float64(len(res.Failures)))
	ds.indicators = res.Rows
	rep.IndicatorsBuilt = len(res.Rows)

	ds.summaries = s.summarize(ctx, ds.indicators, ds.prices, ingest.FundamentalsByTicker(ds.fundamentals))
	return nil
}

func (s *PipelineService) summarize(ctx context.Context, inds []models.IndicatorRow, prices []models.PriceBar, funds map[string]models.FundamentalRecord) []models.SummaryRow {
	res := summary.Summarize(inds, prices, funds)
	for _, t := range res.Excluded {
		Warnf(ctx, models.WarnSummaryExcluded, "%s left out of the summary: missing indicators, price or fundamentals", t)
	}
	return res.Rows
}

// checkFreshness warns when the newest bar predates the last complete trading day
func (s *PipelineService) checkFreshness(ctx context.Context, prices []models.PriceBar) {
	if len(prices) == 0 {
		return
	}
	newest := prices[0].Date
	for _, p := range prices[1:] {
		if p.Date.After(newest) {
			newest = p.Date
		}
	}
	if expected := util.LastTradingDay(s.now()); newest.Before(expected) {
		Warnf(ctx, models.WarnStaleData, "newest price bar is %s, last trading day is %s",
			newest.Format("2006-01-02"), expected.Format("2006-01-02"))
	}
}

// load writes the dataset to the database, table by table. The first failing table
// aborts the run; every batch is committed atomically by its repository.
func (s *PipelineService) load(ctx context.Context, rep *models.RunReport, ds *dataset) error {
	defer TrackTime("Load", time.Now())

	if err := s.stores.Companies.Upsert(ctx, ds.companies); err != nil {
		return fmt.Errorf("failed to load companies: %w", err)
	}
	rep.Companies = len(ds.companies)
	s.metrics.RowsLoaded.WithLabelValues("companies").Add(float64(rep.Companies))

	n, err := loader.Load[models.PriceBar](ctx, s.loader, s.stores.Prices, ds.prices)
	if err != nil {
		return fmt.Errorf("failed to load price_history: %w", err)
	}
	rep.PricesLoaded = n
	s.metrics.RowsLoaded.WithLabelValues("price_history").Add(float64(n))

	if err := s.stores.Fundamentals.Upsert(ctx, ds.fundamentals); err != nil {
		return fmt.Errorf("failed to load fundamentals: %w", err)
	}
	rep.Fundamentals = len(ds.fundamentals)
	s.metrics.RowsLoaded.WithLabelValues("fundamentals").Add(float64(rep.Fundamentals))

	n, err = loader.Load[models.IndicatorRow](ctx, s.loader, s.stores.Indicators, ds.indicators)
	if err != nil {
		return fmt.Errorf("failed to load technical_indicators: %w", err)
	}
	rep.IndicatorsLoaded = n
	s.metrics.RowsLoaded.WithLabelValues("technical_indicators").Add(float64(n))

	if err := s.stores.Summaries.Upsert(ctx, ds.summaries); err != nil {
		return fmt.Errorf("failed to load investment_summary: %w", err)
	}
	rep.Summaries = len(ds.summaries)
	s.metrics.RowsLoaded.WithLabelValues("investment_summary").Add(float64(rep.Summaries))

	s.loaded()
	return nil
}

func (s *PipelineService) loaded() {
	if s.onLoad != nil {
		s.onLoad()
	}
}

// parseFile opens dir/name, parses it and records skipped records as warnings
func parseFile[T any](ctx context.Context, s *PipelineService, dir, name string, rep *models.RunReport,
	parse func(io.Reader) ([]T, *ingest.Report, error)) ([]T, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	rows, parseRep, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	for _, w := range parseRep.Warnings {
		AddWarning(ctx, models.Warning{Code: w.Code, Message: name + ": " + w.Message})
	}
	if parseRep.Malformed > 0 {
		log.Warnf("%s: skipped %d malformed records", name, parseRep.Malformed)
	}
	rep.Malformed += parseRep.Malformed
	s.metrics.Malformed.WithLabelValues(name).Add(float64(parseRep.Malformed))
	s.metrics.RowsRead.WithLabelValues(name).Add(float64(parseRep.Rows))
	log.Debugf("%s: parsed %d records", name, parseRep.Rows)
	return rows, nil
}

// writeFile replaces dir/name atomically so readers never see a half-written file
func writeFile(dir, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
