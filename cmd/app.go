package cmd

import (
	"context"
	"fmt"

	"github.com/epeers/marketetl/config"
	"github.com/epeers/marketetl/internal/cache"
	"github.com/epeers/marketetl/internal/database"
	"github.com/epeers/marketetl/internal/indicators"
	"github.com/epeers/marketetl/internal/loader"
	"github.com/epeers/marketetl/internal/metrics"
	"github.com/epeers/marketetl/internal/repository"
	"github.com/epeers/marketetl/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds everything a command needs once the database is reachable
type app struct {
	db       *database.DB
	metrics  *metrics.Metrics
	cache    *cache.MemoryCache
	pipeline *services.PipelineService

	companies  *repository.CompanyRepository
	indicators *repository.IndicatorRepository
	summaries  *repository.SummaryRepository
}

func newMetrics() *metrics.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewMetrics(reg)
}

func newPipeline(cfg *config.Config, stores services.Stores, m *metrics.Metrics) (*services.PipelineService, error) {
	scope, err := loader.ParseScope(cfg.WatermarkScope)
	if err != nil {
		return nil, err
	}
	engine := indicators.NewEngine(indicators.EngineConfig{
		FibLookback: cfg.FibLookback,
		Workers:     cfg.Workers,
		SortInput:   cfg.SortInput,
	})
	return services.NewPipelineService(
		services.PipelineConfig{RawDir: cfg.RawDir, ReadyDir: cfg.ReadyDir, SortInput: cfg.SortInput},
		stores,
		engine,
		loader.NewLoader(scope),
		m,
	), nil
}

// newApp connects to PostgreSQL, creates missing tables and wires the pipeline to the repositories
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.New(ctx, cfg.PGURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		db:         db,
		metrics:    newMetrics(),
		cache:      cache.NewMemoryCache(cfg.SummaryCacheTTL),
		companies:  repository.NewCompanyRepository(db.Pool),
		indicators: repository.NewIndicatorRepository(db.Pool),
		summaries:  repository.NewSummaryRepository(db.Pool),
	}

	a.pipeline, err = newPipeline(cfg, services.Stores{
		Companies:    a.companies,
		Prices:       repository.NewPriceRepository(db.Pool),
		Fundamentals: repository.NewFundamentalRepository(db.Pool),
		Indicators:   a.indicators,
		Summaries:    a.summaries,
	}, a.metrics)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.pipeline.OnLoad(a.cache.Clear)
	return a, nil
}

func (a *app) Close() {
	a.db.Close()
}
