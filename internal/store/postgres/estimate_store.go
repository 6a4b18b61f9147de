package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfeed/costsim/internal/domain"
)

// EstimateStore implements domain.EstimateStore using PostgreSQL.
type EstimateStore struct {
	pool *pgxpool.Pool
}

// NewEstimateStore creates a new EstimateStore backed by the given connection
// pool.
func NewEstimateStore(pool *pgxpool.Pool) *EstimateStore {
	return &EstimateStore{pool: pool}
}

const estimateSelectCols = `id, created_at, asset, order_type, side, quantity,
	fee_tier, success, reason, reference_price, maker_ratio,
	fee_total, fee_pct, slippage_pct, slippage_capped,
	impact_permanent, impact_temporary, impact_total,
	execution_price, execution_cost, total_cost, total_cost_pct,
	total_latency_ms`

func scanEstimateRows(rows pgx.Rows) ([]domain.TradeEstimate, error) {
	var ests []domain.TradeEstimate
	for rows.Next() {
		var (
			e      domain.TradeEstimate
			reason *string
		)
		if err := rows.Scan(
			&e.ID, &e.CreatedAt, &e.Asset, &e.OrderType, &e.Side, &e.Quantity,
			&e.FeeTier, &e.Success, &reason, &e.ReferencePrice, &e.MakerRatio,
			&e.Fees.Total, &e.Fees.Pct, &e.Slippage.EstimatedPct, &e.Slippage.CappedPct,
			&e.Impact.Permanent, &e.Impact.Temporary, &e.Impact.Total,
			&e.Execution.Price, &e.Execution.Cost, &e.Execution.TotalCost, &e.Execution.TotalCostPct,
			&e.Latencies.TotalMs,
		); err != nil {
			return nil, err
		}
		if reason != nil {
			e.Reason = *reason
		}
		ests = append(ests, e)
	}
	return ests, rows.Err()
}

// Insert persists one completed estimate.
func (s *EstimateStore) Insert(ctx context.Context, est domain.TradeEstimate) error {
	const query = `
		INSERT INTO trade_estimates (
			id, created_at, asset, order_type, side, quantity,
			fee_tier, success, reason, reference_price, maker_ratio,
			fee_total, fee_pct, slippage_pct, slippage_capped,
			impact_permanent, impact_temporary, impact_total,
			execution_price, execution_cost, total_cost, total_cost_pct,
			total_latency_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21, $22,
			$23
		) ON CONFLICT (id) DO NOTHING`

	var reason *string
	if est.Reason != "" {
		reason = &est.Reason
	}

	_, err := s.pool.Exec(ctx, query,
		est.ID, est.CreatedAt, est.Asset, est.OrderType, est.Side, est.Quantity,
		est.FeeTier, est.Success, reason, est.ReferencePrice, est.MakerRatio,
		est.Fees.Total, est.Fees.Pct, est.Slippage.EstimatedPct, est.Slippage.CappedPct,
		est.Impact.Permanent, est.Impact.Temporary, est.Impact.Total,
		est.Execution.Price, est.Execution.Cost, est.Execution.TotalCost, est.Execution.TotalCostPct,
		est.Latencies.TotalMs,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert estimate %s: %w", est.ID, err)
	}
	return nil
}

// ListRecent returns the most recent estimates, newest first.
func (s *EstimateStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeEstimate, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + estimateSelectCols + `
		FROM trade_estimates ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent estimates: %w", err)
	}
	defer rows.Close()

	ests, err := scanEstimateRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent estimates: %w", err)
	}
	return ests, nil
}

// ListBefore returns all estimates created strictly before the given time
// (for archiving), oldest first.
func (s *EstimateStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeEstimate, error) {
	query := `SELECT ` + estimateSelectCols + `
		FROM trade_estimates WHERE created_at < $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list estimates before: %w", err)
	}
	defer rows.Close()

	ests, err := scanEstimateRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan estimates before: %w", err)
	}
	return ests, nil
}

// DeleteBefore deletes all estimates created before the given time. Returns
// the number deleted.
func (s *EstimateStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trade_estimates WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete estimates before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.EstimateStore = (*EstimateStore)(nil)
