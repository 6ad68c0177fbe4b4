package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/marketetl/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IndicatorRepository handles database operations for technical_indicators
type IndicatorRepository struct {
	pool *pgxpool.Pool
}

// NewIndicatorRepository creates a new IndicatorRepository
func NewIndicatorRepository(pool *pgxpool.Pool) *IndicatorRepository {
	return &IndicatorRepository{pool: pool}
}

const indicatorColumns = `ticker, date, sma_20, sma_50, ema_20, rsi_14, macd, macd_signal, macd_hist,
	atr_14, obv, bb_middle, bb_upper, bb_lower, volatility_20,
	fib_0_0, fib_23_6, fib_38_2, fib_50_0, fib_61_8, fib_100, nearest_fib_level, fib_state`

// Upsert inserts indicator rows or overwrites every value of an existing (ticker, date)
func (r *IndicatorRepository) Upsert(ctx context.Context, rows []models.IndicatorRow) error {
	query := `
		INSERT INTO technical_indicators (` + indicatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (ticker, date) DO UPDATE
		SET sma_20 = EXCLUDED.sma_20, sma_50 = EXCLUDED.sma_50, ema_20 = EXCLUDED.ema_20,
		    rsi_14 = EXCLUDED.rsi_14, macd = EXCLUDED.macd, macd_signal = EXCLUDED.macd_signal,
		    macd_hist = EXCLUDED.macd_hist, atr_14 = EXCLUDED.atr_14, obv = EXCLUDED.obv,
		    bb_middle = EXCLUDED.bb_middle, bb_upper = EXCLUDED.bb_upper, bb_lower = EXCLUDED.bb_lower,
		    volatility_20 = EXCLUDED.volatility_20,
		    fib_0_0 = EXCLUDED.fib_0_0, fib_23_6 = EXCLUDED.fib_23_6, fib_38_2 = EXCLUDED.fib_38_2,
		    fib_50_0 = EXCLUDED.fib_50_0, fib_61_8 = EXCLUDED.fib_61_8, fib_100 = EXCLUDED.fib_100,
		    nearest_fib_level = EXCLUDED.nearest_fib_level, fib_state = EXCLUDED.fib_state
	`
	return upsertInTx(ctx, r.pool, query, len(rows), func(i int) []any {
		x := rows[i]
		return []any{x.Ticker, x.Date, x.SMA20, x.SMA50, x.EMA20, x.RSI14, x.MACD, x.MACDSignal, x.MACDHist,
			x.ATR14, x.OBV, x.BBMiddle, x.BBUpper, x.BBLower, x.Volatility20,
			x.Fib0, x.Fib236, x.Fib382, x.Fib500, x.Fib618, x.Fib100, x.NearestFibLevel, x.FibState}
	})
}

// MaxDate returns the latest stored date across all tickers, or nil when the table is empty
func (r *IndicatorRepository) MaxDate(ctx context.Context) (*time.Time, error) {
	return maxDate(ctx, r.pool, "technical_indicators")
}

// MaxDates returns the latest stored date per ticker
func (r *IndicatorRepository) MaxDates(ctx context.Context) (map[string]time.Time, error) {
	return maxDates(ctx, r.pool, "technical_indicators")
}

// GetSeries retrieves a ticker's indicator rows ordered by date. Zero start or end leaves that side open.
func (r *IndicatorRepository) GetSeries(ctx context.Context, ticker string, startDate, endDate time.Time) ([]models.IndicatorRow, error) {
	query := `
		SELECT ` + indicatorColumns + `
		FROM technical_indicators
		WHERE ticker = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`
	rows, err := r.pool.Query(ctx, query, ticker, nullDate(startDate), nullDate(endDate))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query indicators: %w", err))
	}
	return scanIndicators(rows)
}

// GetLatestAll retrieves the most recent indicator row of every ticker
func (r *IndicatorRepository) GetLatestAll(ctx context.Context) ([]models.IndicatorRow, error) {
	query := `
		SELECT DISTINCT ON (ticker) ` + indicatorColumns + `
		FROM technical_indicators
		ORDER BY ticker, date DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query latest indicators: %w", err))
	}
	return scanIndicators(rows)
}

func scanIndicators(rows pgx.Rows) ([]models.IndicatorRow, error) {
	defer rows.Close()

	var out []models.IndicatorRow
	for rows.Next() {
		var x models.IndicatorRow
		if err := rows.Scan(&x.Ticker, &x.Date, &x.SMA20, &x.SMA50, &x.EMA20, &x.RSI14,
			&x.MACD, &x.MACDSignal, &x.MACDHist, &x.ATR14, &x.OBV,
			&x.BBMiddle, &x.BBUpper, &x.BBLower, &x.Volatility20,
			&x.Fib0, &x.Fib236, &x.Fib382, &x.Fib500, &x.Fib618, &x.Fib100,
			&x.NearestFibLevel, &x.FibState); err != nil {
			return nil, fmt.Errorf("failed to scan indicator row: %w", err)
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
