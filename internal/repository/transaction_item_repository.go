package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-ledger/internal/domain"

	"github.com/google/uuid"
)

var ErrTransactionItemNotFound = errors.New("transaction item not found")

// TransactionItemRepository defines the interface for line item data access.
// Items are returned with product details embedded.
type TransactionItemRepository interface {
	Create(ctx context.Context, item *domain.TransactionItem) error
	Update(ctx context.Context, item *domain.TransactionItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.TransactionItem, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionItem, error)
	ListByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID][]domain.TransactionItem, error)
	List(ctx context.Context, filter domain.TransactionItemFilter) ([]*domain.TransactionItem, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int, error)
}

type transactionItemRepository struct {
	db DBTX
}

// NewTransactionItemRepository creates a new instance of TransactionItemRepository
func NewTransactionItemRepository(db DBTX) TransactionItemRepository {
	return &transactionItemRepository{db: db}
}

const itemSelect = `
	SELECT i.id, i.transaction_id, i.product_id, i.quantity, i.unit_price, i.subtotal, i.created_at, i.updated_at,
	       p.name, p.price, p.stock
	FROM transaction_items i
	JOIN products p ON p.id = i.product_id
`

func scanItem(row interface{ Scan(...interface{}) error }) (*domain.TransactionItem, error) {
	item := &domain.TransactionItem{Product: &domain.ProductDetails{}}
	err := row.Scan(
		&item.ID,
		&item.TransactionID,
		&item.ProductID,
		&item.Quantity,
		&item.UnitPrice,
		&item.Subtotal,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Product.Name,
		&item.Product.Price,
		&item.Product.Stock,
	)
	item.Product.ID = item.ProductID
	return item, err
}

func itemWriteError(op string, err error) error {
	if isForeignKeyViolation(err) {
		return ErrProductNotFound
	}
	return fmt.Errorf("failed to %s transaction item: %w", op, err)
}

// Create inserts a line item. Subtotal must already be computed.
func (r *transactionItemRepository) Create(ctx context.Context, item *domain.TransactionItem) error {
	query := `
		INSERT INTO transaction_items (id, transaction_id, product_id, quantity, unit_price, subtotal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.TransactionID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.Subtotal,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return itemWriteError("create", err)
	}

	return nil
}

// Update persists product, quantity, unit price and subtotal
func (r *transactionItemRepository) Update(ctx context.Context, item *domain.TransactionItem) error {
	query := `
		UPDATE transaction_items
		SET product_id = $2, quantity = $3, unit_price = $4, subtotal = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		item.ID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.Subtotal,
		item.UpdatedAt,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransactionItemNotFound
		}
		return itemWriteError("update", err)
	}

	return nil
}

// Delete removes a single line item
func (r *transactionItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transaction_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTransactionItemNotFound
	}

	return nil
}

// FindByID retrieves a line item by ID
func (r *transactionItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransactionItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, itemSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionItemNotFound
		}
		return nil, fmt.Errorf("failed to find transaction item by ID: %w", err)
	}

	return item, nil
}

// ListByTransaction retrieves the items of one transaction in insertion order
func (r *transactionItemRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionItem, error) {
	byTx, err := r.ListByTransactions(ctx, []uuid.UUID{transactionID})
	if err != nil {
		return nil, err
	}
	items := byTx[transactionID]
	if items == nil {
		items = []domain.TransactionItem{}
	}
	return items, nil
}

// ListByTransactions retrieves items for several transactions in one query
func (r *transactionItemRepository) ListByTransactions(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID][]domain.TransactionItem, error) {
	result := make(map[uuid.UUID][]domain.TransactionItem, len(transactionIDs))
	if len(transactionIDs) == 0 {
		return result, nil
	}

	params := make([]string, len(transactionIDs))
	for i, id := range transactionIDs {
		params[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, itemSelect+` WHERE i.transaction_id = ANY($1::uuid[]) ORDER BY i.created_at, i.id`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction item: %w", err)
		}
		result[item.TransactionID] = append(result[item.TransactionID], *item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction items: %w", err)
	}

	return result, nil
}

// List retrieves items filtered by transaction identifier and product
func (r *transactionItemRepository) List(ctx context.Context, filter domain.TransactionItemFilter) ([]*domain.TransactionItem, error) {
	where := &whereBuilder{}
	if filter.TransactionIdentifier != "" {
		where.add("i.transaction_id IN (SELECT id FROM transactions WHERE transaction_id = %[1]s)", filter.TransactionIdentifier)
	}
	if filter.ProductID != nil {
		where.add("i.product_id = %[1]s", *filter.ProductID)
	}

	rows, err := r.db.QueryContext(ctx, itemSelect+where.String()+` ORDER BY i.created_at, i.id`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction items: %w", err)
	}
	defer rows.Close()

	items := []*domain.TransactionItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction items: %w", err)
	}

	return items, nil
}

// CountByProduct returns how many line items reference a product
func (r *transactionItemRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_items WHERE product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transaction items: %w", err)
	}
	return count, nil
}
