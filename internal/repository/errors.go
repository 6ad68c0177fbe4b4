package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrSinkUnavailable wraps failures to reach the database
	ErrSinkUnavailable = errors.New("sink unavailable")
	// ErrSinkConflict wraps constraint, serialization and deadlock failures
	ErrSinkConflict = errors.New("sink conflict")
	// ErrNotFound is returned by single-row lookups when nothing matches
	ErrNotFound = errors.New("not found")
)

// batchChunk bounds how many statements are queued in one pgx.Batch
const batchChunk = 5000

// classify wraps driver errors with the sink sentinels so callers can decide on retries.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505", pgErr.Code == "23P01", pgErr.Code == "40001", pgErr.Code == "40P01":
			return fmt.Errorf("%w: %w", ErrSinkConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "53300":
			return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}
	return err
}

// upsertInTx queues one statement per row and executes them in a single transaction,
// so either every row commits or none does.
func upsertInTx(ctx context.Context, pool *pgxpool.Pool, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	for start := 0; start < n; start += batchChunk {
		end := min(start+batchChunk, n)
		if err := sendChunk(ctx, tx, query, start, end, args); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

func sendChunk(ctx context.Context, tx pgx.Tx, query string, start, end int, args func(i int) []any) error {
	batch := &pgx.Batch{}
	for i := start; i < end; i++ {
		batch.Queue(query, args(i)...)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for i := start; i < end; i++ {
		if _, err := br.Exec(); err != nil {
			return classify(fmt.Errorf("row %d: failed to upsert: %w", i, err))
		}
	}
	return nil
}
