package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const listingSelectCols = `id, title, price, currency, condition_tag,
	category_path, listed_at, source, attributes`

const listingUpsertQuery = `
	INSERT INTO listings (
		id, title, price, currency, condition_tag,
		category_path, listed_at, source, attributes
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		title         = EXCLUDED.title,
		price         = EXCLUDED.price,
		currency      = EXCLUDED.currency,
		condition_tag = EXCLUDED.condition_tag,
		category_path = EXCLUDED.category_path,
		listed_at     = EXCLUDED.listed_at,
		source        = EXCLUDED.source,
		attributes    = EXCLUDED.attributes`

// Upsert inserts a listing or refreshes its metadata when the ID exists.
func (s *ListingStore) Upsert(ctx context.Context, listing domain.ListingRecord) error {
	attrs, err := json.Marshal(listing.Attributes)
	if err != nil {
		return fmt.Errorf("postgres: marshal listing attributes %s: %w", listing.ID, err)
	}

	_, err = s.pool.Exec(ctx, listingUpsertQuery,
		listing.ID, listing.Title, listing.Price, listing.Currency, listing.Condition,
		listing.CategoryPath, listing.Timestamp, listing.Source, attrs,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing %s: %w", listing.ID, err)
	}
	return nil
}

// UpsertBatch upserts a batch of listings inside one transaction.
func (s *ListingStore) UpsertBatch(ctx context.Context, listings []domain.ListingRecord) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin listing batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, listing := range listings {
		attrs, err := json.Marshal(listing.Attributes)
		if err != nil {
			return fmt.Errorf("postgres: marshal listing attributes %s: %w", listing.ID, err)
		}
		batch.Queue(listingUpsertQuery,
			listing.ID, listing.Title, listing.Price, listing.Currency, listing.Condition,
			listing.CategoryPath, listing.Timestamp, listing.Source, attrs,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range listings {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("postgres: exec listing batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("postgres: close listing batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit listing batch: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by its ID. It returns domain.ErrNotFound when no
// such listing exists.
func (s *ListingStore) GetByID(ctx context.Context, id string) (domain.ListingRecord, error) {
	query := `SELECT ` + listingSelectCols + ` FROM listings WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ListingRecord{}, domain.ErrNotFound
		}
		return domain.ListingRecord{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return listing, nil
}

// ListActive returns listings ordered newest first, honoring the window and
// pagination in opts.
func (s *ListingStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.ListingRecord, error) {
	query := `SELECT ` + listingSelectCols + ` FROM listings`
	var args []any
	var where []string

	if opts.Since != nil {
		args = append(args, *opts.Since)
		where = append(where, fmt.Sprintf("listed_at >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		where = append(where, fmt.Sprintf("listed_at < $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY listed_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.queryListings(ctx, query, args...)
}

// ListBefore returns listings listed strictly before the cutoff, oldest first,
// for archival sweeps.
func (s *ListingStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.ListingRecord, error) {
	query := `SELECT ` + listingSelectCols + ` FROM listings WHERE listed_at < $1 ORDER BY listed_at ASC`
	args := []any{before}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $2"
	}
	return s.queryListings(ctx, query, args...)
}

// DeleteBefore removes listings listed strictly before the cutoff and reports
// how many were removed.
func (s *ListingStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM listings WHERE listed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete listings before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored listings.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count listings: %w", err)
	}
	return n, nil
}

func (s *ListingStore) queryListings(ctx context.Context, query string, args ...any) ([]domain.ListingRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.ListingRecord
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list listings rows: %w", err)
	}
	return listings, nil
}

func scanListing(row pgx.Row) (domain.ListingRecord, error) {
	var listing domain.ListingRecord
	var attrs []byte

	if err := row.Scan(
		&listing.ID, &listing.Title, &listing.Price, &listing.Currency, &listing.Condition,
		&listing.CategoryPath, &listing.Timestamp, &listing.Source, &attrs,
	); err != nil {
		return domain.ListingRecord{}, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &listing.Attributes); err != nil {
			return domain.ListingRecord{}, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return listing, nil
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)
