package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// ComparableStore implements domain.ComparableStore using PostgreSQL. It
// mirrors the in-memory corpus for durability: on restart the corpus is
// rebuilt from these rows.
type ComparableStore struct {
	pool *pgxpool.Pool
}

// NewComparableStore creates a ComparableStore backed by the given pool.
func NewComparableStore(pool *pgxpool.Pool) *ComparableStore {
	return &ComparableStore{pool: pool}
}

const comparableSelectCols = `title, sale_price, sale_timestamp, source, condition_tag`

// InsertBatch stores a batch of comps under one group key inside a single
// transaction.
func (s *ComparableStore) InsertBatch(ctx context.Context, groupKey string, comps []domain.ComparableRecord) error {
	if len(comps) == 0 {
		return nil
	}

	const query = `
		INSERT INTO comparables (group_key, title, sale_price, sale_timestamp, source, condition_tag)
		VALUES ($1, $2, $3, $4, $5, $6)`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin comp batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, comp := range comps {
		batch.Queue(query,
			groupKey, comp.Title, comp.SalePrice, comp.SaleTimestamp, comp.Source, comp.Condition,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range comps {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("postgres: exec comp batch %s: %w", groupKey, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("postgres: close comp batch %s: %w", groupKey, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit comp batch %s: %w", groupKey, err)
	}
	return nil
}

// ListByGroup returns comps for one group, newest sale first.
func (s *ComparableStore) ListByGroup(ctx context.Context, groupKey string, opts domain.ListOpts) ([]domain.ComparableRecord, error) {
	query := `SELECT ` + comparableSelectCols + ` FROM comparables WHERE group_key = $1 ORDER BY sale_timestamp DESC`
	args := []any{groupKey}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += " LIMIT $2"
	}
	return s.queryComps(ctx, query, args...)
}

// ListSince returns every comp sold at or after the cutoff, oldest first, for
// corpus rebuilds.
func (s *ComparableStore) ListSince(ctx context.Context, since time.Time) ([]domain.ComparableRecord, error) {
	query := `SELECT ` + comparableSelectCols + ` FROM comparables WHERE sale_timestamp >= $1 ORDER BY sale_timestamp ASC`
	return s.queryComps(ctx, query, since)
}

// Count returns the total number of stored comps.
func (s *ComparableStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comparables`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count comparables: %w", err)
	}
	return n, nil
}

func (s *ComparableStore) queryComps(ctx context.Context, query string, args ...any) ([]domain.ComparableRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list comparables: %w", err)
	}
	defer rows.Close()

	var comps []domain.ComparableRecord
	for rows.Next() {
		var comp domain.ComparableRecord
		if err := rows.Scan(
			&comp.Title, &comp.SalePrice, &comp.SaleTimestamp, &comp.Source, &comp.Condition,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan comparable: %w", err)
		}
		comps = append(comps, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list comparables rows: %w", err)
	}
	return comps, nil
}

// Compile-time interface check.
var _ domain.ComparableStore = (*ComparableStore)(nil)
