package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/epeers/marketetl/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SummaryRepository handles database operations for investment_summary
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a new SummaryRepository
func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

const summaryColumns = `ticker, pct_technical_buy, pct_fundamental_buy, final_decision, bollinger_state,
	sma_vs_ema, macd, rsi, per, roe, eps_growth_yoy, debt_to_equity, fib_state`

func signalText(s *models.Signal) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func textSignal(s *string) *models.Signal {
	if s == nil {
		return nil
	}
	v := models.Signal(*s)
	return &v
}

// Upsert replaces the summary of each ticker
func (r *SummaryRepository) Upsert(ctx context.Context, rows []models.SummaryRow) error {
	query := `
		INSERT INTO investment_summary (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (ticker) DO UPDATE
		SET pct_technical_buy = EXCLUDED.pct_technical_buy, pct_fundamental_buy = EXCLUDED.pct_fundamental_buy,
		    final_decision = EXCLUDED.final_decision, bollinger_state = EXCLUDED.bollinger_state,
		    sma_vs_ema = EXCLUDED.sma_vs_ema, macd = EXCLUDED.macd, rsi = EXCLUDED.rsi,
		    per = EXCLUDED.per, roe = EXCLUDED.roe, eps_growth_yoy = EXCLUDED.eps_growth_yoy,
		    debt_to_equity = EXCLUDED.debt_to_equity, fib_state = EXCLUDED.fib_state
	`
	return upsertInTx(ctx, r.pool, query, len(rows), func(i int) []any {
		s := rows[i]
		return []any{s.Ticker, s.PctTechnicalBuy, s.PctFundamentalBuy, string(s.FinalDecision), s.BollingerState,
			signalText(s.SMAVsEMASignal), signalText(s.MACDSignalLabel), signalText(s.RSISignalLabel),
			signalText(s.PERSignal), signalText(s.ROESignal), signalText(s.EPSGrowthSignal),
			signalText(s.DebtEquitySignal), s.FibState}
	})
}

// GetAll retrieves every summary ordered by ticker
func (r *SummaryRepository) GetAll(ctx context.Context) ([]models.SummaryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+summaryColumns+` FROM investment_summary ORDER BY ticker`)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query summaries: %w", err))
	}
	defer rows.Close()

	var out []models.SummaryRow
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetByTicker retrieves one summary
func (r *SummaryRepository) GetByTicker(ctx context.Context, ticker string) (*models.SummaryRow, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM investment_summary WHERE ticker = $1`, ticker)
	s, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

func scanSummary(row pgx.Row) (*models.SummaryRow, error) {
	var s models.SummaryRow
	var decision string
	var smaEma, macd, rsi, per, roe, eps, de *string
	if err := row.Scan(&s.Ticker, &s.PctTechnicalBuy, &s.PctFundamentalBuy, &decision, &s.BollingerState,
		&smaEma, &macd, &rsi, &per, &roe, &eps, &de, &s.FibState); err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}
	s.FinalDecision = models.Signal(decision)
	s.SMAVsEMASignal, s.MACDSignalLabel, s.RSISignalLabel = textSignal(smaEma), textSignal(macd), textSignal(rsi)
	s.PERSignal, s.ROESignal, s.EPSGrowthSignal, s.DebtEquitySignal = textSignal(per), textSignal(roe), textSignal(eps), textSignal(de)
	return &s, nil
}
