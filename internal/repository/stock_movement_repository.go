package repository

import (
	"context"
	"fmt"

	"inventory-ledger/internal/domain"
)

// StockMovementRepository appends to and reads the stock journal
type StockMovementRepository interface {
	Append(ctx context.Context, movement *domain.StockMovement) error
	List(ctx context.Context, filter domain.MovementFilter) ([]*domain.StockMovement, error)
}

type stockMovementRepository struct {
	db DBTX
}

// NewStockMovementRepository creates a new instance of StockMovementRepository
func NewStockMovementRepository(db DBTX) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Append(ctx context.Context, m *domain.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, transaction_id, transaction_identifier, item_id, delta, stock_after, reason, note, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		m.ID,
		m.ProductID,
		m.TransactionID,
		m.Identifier,
		m.ItemID,
		m.Delta,
		m.StockAfter,
		m.Reason,
		m.Note,
		m.Actor,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append stock movement: %w", err)
	}

	return nil
}

func (r *stockMovementRepository) List(ctx context.Context, filter domain.MovementFilter) ([]*domain.StockMovement, error) {
	where := &whereBuilder{}
	if filter.ProductID != nil {
		where.add("product_id = %[1]s", *filter.ProductID)
	}
	if filter.TransactionIdentifier != "" {
		where.add("transaction_identifier = %[1]s", filter.TransactionIdentifier)
	}

	query := `
		SELECT id, product_id, transaction_id, transaction_identifier, item_id, delta, stock_after, reason, note, actor, created_at
		FROM stock_movements` + where.String() + `
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.StockMovement{}
	for rows.Next() {
		m := &domain.StockMovement{}
		err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.TransactionID,
			&m.Identifier,
			&m.ItemID,
			&m.Delta,
			&m.StockAfter,
			&m.Reason,
			&m.Note,
			&m.Actor,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}

	return movements, nil
}
