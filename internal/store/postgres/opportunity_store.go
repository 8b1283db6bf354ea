package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, listing_id, platform, fair_value, acquisition_price,
	net_proceeds, margin_absolute, margin_pct, recommendation, confidence,
	reason, detected_at`

// Insert stores a scored opportunity. Opportunity IDs are stable across
// re-scores of the same listing/group-version state, so a repeated scan
// updates the existing row instead of failing on the primary key.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, listing_id, platform, fair_value, acquisition_price,
			net_proceeds, margin_absolute, margin_pct, recommendation, confidence,
			reason, detected_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
		ON CONFLICT (id) DO UPDATE SET
			fair_value        = EXCLUDED.fair_value,
			acquisition_price = EXCLUDED.acquisition_price,
			net_proceeds      = EXCLUDED.net_proceeds,
			margin_absolute   = EXCLUDED.margin_absolute,
			margin_pct        = EXCLUDED.margin_pct,
			recommendation    = EXCLUDED.recommendation,
			confidence        = EXCLUDED.confidence,
			reason            = EXCLUDED.reason,
			detected_at       = EXCLUDED.detected_at`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.ListingID, opp.Platform, opp.FairValue, opp.AcquisitionPrice,
		opp.NetProceeds, opp.MarginAbsolute, opp.MarginPct, opp.Recommendation, opp.Confidence,
		opp.Reason, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recently detected opportunities.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC`
	var args []any
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $1"
	}
	return s.queryOpps(ctx, query, args...)
}

// ListByRecommendation returns opportunities with the given recommendation,
// newest first.
func (s *OpportunityStore) ListByRecommendation(ctx context.Context, rec domain.Recommendation, opts domain.ListOpts) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE recommendation = $1`
	args := []any{rec}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND detected_at >= $%d", len(args))
	}
	query += " ORDER BY detected_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.queryOpps(ctx, query, args...)
}

func (s *OpportunityStore) queryOpps(ctx context.Context, query string, args ...any) ([]domain.ArbitrageOpportunity, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities rows: %w", err)
	}
	return opps, nil
}

func scanOpportunity(row pgx.Row) (domain.ArbitrageOpportunity, error) {
	var opp domain.ArbitrageOpportunity
	if err := row.Scan(
		&opp.ID, &opp.ListingID, &opp.Platform, &opp.FairValue, &opp.AcquisitionPrice,
		&opp.NetProceeds, &opp.MarginAbsolute, &opp.MarginPct, &opp.Recommendation, &opp.Confidence,
		&opp.Reason, &opp.DetectedAt,
	); err != nil {
		return domain.ArbitrageOpportunity{}, err
	}
	return opp, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
