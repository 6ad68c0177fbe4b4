package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/marketetl/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PriceRepository handles database operations for price_history
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new PriceRepository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Upsert inserts bars in one transaction. Existing (ticker, date) rows are left untouched.
func (r *PriceRepository) Upsert(ctx context.Context, bars []models.PriceBar) error {
	query := `
		INSERT INTO price_history (ticker, date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, date) DO NOTHING
	`
	return upsertInTx(ctx, r.pool, query, len(bars), func(i int) []any {
		b := bars[i]
		return []any{b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume}
	})
}

// MaxDate returns the latest stored date across all tickers, or nil when the table is empty
func (r *PriceRepository) MaxDate(ctx context.Context) (*time.Time, error) {
	return maxDate(ctx, r.pool, "price_history")
}

// MaxDates returns the latest stored date per ticker
func (r *PriceRepository) MaxDates(ctx context.Context) (map[string]time.Time, error) {
	return maxDates(ctx, r.pool, "price_history")
}

// GetSeries retrieves a ticker's bars ordered by date. Zero start or end leaves that side open.
func (r *PriceRepository) GetSeries(ctx context.Context, ticker string, startDate, endDate time.Time) ([]models.PriceBar, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM price_history
		WHERE ticker = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`
	rows, err := r.pool.Query(ctx, query, ticker, nullDate(startDate), nullDate(endDate))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query prices: %w", err))
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetLatestAll retrieves the most recent bar of every ticker
func (r *PriceRepository) GetLatestAll(ctx context.Context) ([]models.PriceBar, error) {
	query := `
		SELECT DISTINCT ON (ticker) ticker, date, open, high, low, close, volume
		FROM price_history
		ORDER BY ticker, date DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query latest prices: %w", err))
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// maxDate and maxDates interpolate the table name; callers pass constants only.
func maxDate(ctx context.Context, pool *pgxpool.Pool, table string) (*time.Time, error) {
	var d *time.Time
	if err := pool.QueryRow(ctx, "SELECT MAX(date) FROM "+table).Scan(&d); err != nil {
		return nil, classify(fmt.Errorf("failed to get max date of %s: %w", table, err))
	}
	return d, nil
}

func maxDates(ctx context.Context, pool *pgxpool.Pool, table string) (map[string]time.Time, error) {
	rows, err := pool.Query(ctx, "SELECT ticker, MAX(date) FROM "+table+" GROUP BY ticker")
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get max dates of %s: %w", table, err))
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var ticker string
		var d time.Time
		if err := rows.Scan(&ticker, &d); err != nil {
			return nil, fmt.Errorf("failed to scan max date: %w", err)
		}
		out[ticker] = d
	}
	return out, rows.Err()
}
