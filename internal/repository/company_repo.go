package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/epeers/marketetl/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyRepository handles database operations for the companies table
type CompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Upsert inserts companies or updates name, sector and industry by ticker
func (r *CompanyRepository) Upsert(ctx context.Context, companies []models.Company) error {
	query := `
		INSERT INTO companies (ticker, name, sector, industry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker) DO UPDATE
		SET name = EXCLUDED.name, sector = EXCLUDED.sector, industry = EXCLUDED.industry
	`
	return upsertInTx(ctx, r.pool, query, len(companies), func(i int) []any {
		c := companies[i]
		return []any{c.Ticker, c.Name, c.Sector, c.Industry}
	})
}

// GetByTicker retrieves one company
func (r *CompanyRepository) GetByTicker(ctx context.Context, ticker string) (*models.Company, error) {
	query := `SELECT ticker, name, COALESCE(sector, ''), COALESCE(industry, '') FROM companies WHERE ticker = $1`
	c := &models.Company{}
	err := r.pool.QueryRow(ctx, query, ticker).Scan(&c.Ticker, &c.Name, &c.Sector, &c.Industry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get company: %w", err))
	}
	return c, nil
}
