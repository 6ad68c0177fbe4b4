package repository

import (
	"context"
	"fmt"

	"github.com/epeers/marketetl/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FundamentalRepository handles database operations for the fundamentals table
type FundamentalRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalRepository creates a new FundamentalRepository
func NewFundamentalRepository(pool *pgxpool.Pool) *FundamentalRepository {
	return &FundamentalRepository{pool: pool}
}

// Upsert replaces every ratio of each ticker with the incoming values
func (r *FundamentalRepository) Upsert(ctx context.Context, records []models.FundamentalRecord) error {
	query := `
		INSERT INTO fundamentals (ticker, per, roe, eps_growth_yoy, debt_to_equity,
		                          net_margin, dividend_yield, market_cap, market_cap_rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticker) DO UPDATE
		SET per = EXCLUDED.per, roe = EXCLUDED.roe, eps_growth_yoy = EXCLUDED.eps_growth_yoy,
		    debt_to_equity = EXCLUDED.debt_to_equity, net_margin = EXCLUDED.net_margin,
		    dividend_yield = EXCLUDED.dividend_yield, market_cap = EXCLUDED.market_cap,
		    market_cap_rank = EXCLUDED.market_cap_rank
	`
	return upsertInTx(ctx, r.pool, query, len(records), func(i int) []any {
		f := records[i]
		return []any{f.Ticker, f.PER, f.ROE, f.EPSGrowthYoY, f.DebtToEquity,
			f.NetMargin, f.DividendYield, f.MarketCap, f.MarketCapRank}
	})
}

// GetAll retrieves fundamentals keyed by ticker
func (r *FundamentalRepository) GetAll(ctx context.Context) (map[string]models.FundamentalRecord, error) {
	query := `
		SELECT f.ticker, COALESCE(c.name, ''), f.per, f.roe, f.eps_growth_yoy, f.debt_to_equity,
		       f.net_margin, f.dividend_yield, f.market_cap, f.market_cap_rank
		FROM fundamentals f
		LEFT JOIN companies c ON c.ticker = f.ticker
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query fundamentals: %w", err))
	}
	defer rows.Close()

	out := make(map[string]models.FundamentalRecord)
	for rows.Next() {
		var f models.FundamentalRecord
		if err := rows.Scan(&f.Ticker, &f.Name, &f.PER, &f.ROE, &f.EPSGrowthYoY, &f.DebtToEquity,
			&f.NetMargin, &f.DividendYield, &f.MarketCap, &f.MarketCapRank); err != nil {
			return nil, fmt.Errorf("failed to scan fundamentals: %w", err)
		}
		out[f.Ticker] = f
	}
	return out, rows.Err()
}
