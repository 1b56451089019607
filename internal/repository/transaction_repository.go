package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-ledger/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateIdentifier = errors.New("transaction identifier already exists")
)

// TransactionRepository defines the interface for transaction data access.
// Returned transactions do not carry items; callers attach them from
// TransactionItemRepository.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	LockByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

type transactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new instance of TransactionRepository
func NewTransactionRepository(db DBTX) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, transaction_id, transaction_type, status, total_amount, notes, created_at, updated_at`

var transactionOrderings = map[domain.TransactionOrdering]string{
	domain.OrderCreatedAtAsc:    "created_at ASC",
	domain.OrderCreatedAtDesc:   "created_at DESC",
	domain.OrderTotalAmountAsc:  "total_amount ASC",
	domain.OrderTotalAmountDesc: "total_amount DESC",
}

func scanTransaction(row interface{ Scan(...interface{}) error }) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	err := row.Scan(
		&tx.ID,
		&tx.TransactionID,
		&tx.TransactionType,
		&tx.Status,
		&tx.TotalAmount,
		&tx.Notes,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	return tx, err
}

// Create inserts a transaction. A clash on the generated identifier returns
// ErrDuplicateIdentifier; inside a database transaction the caller must
// roll back before retrying.
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, transaction_id, transaction_type, status, total_amount, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		tx.ID,
		tx.TransactionID,
		tx.TransactionType,
		tx.Status,
		tx.TotalAmount,
		tx.Notes,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "transactions_transaction_id_key") {
			return ErrDuplicateIdentifier
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// Update persists type, status, total and notes. The identifier is immutable.
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET transaction_type = $2, status = $3, total_amount = $4, notes = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		tx.ID,
		tx.TransactionType,
		tx.Status,
		tx.TotalAmount,
		tx.Notes,
		tx.UpdatedAt,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransactionNotFound
		}
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	return nil
}

// Delete removes a transaction; its items are removed by cascade
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// FindByID retrieves a transaction by ID
func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.find(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

// LockByID retrieves a transaction and holds a row lock on it until the
// surrounding database transaction ends, serializing writers of its items.
func (r *transactionRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.find(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *transactionRepository) find(ctx context.Context, query string, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction by ID: %w", err)
	}

	return tx, nil
}

// List retrieves transactions matching every filter that is set
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	where := &whereBuilder{}
	if filter.Type != "" {
		where.add("transaction_type = %[1]s", filter.Type)
	}
	if filter.Status != "" {
		where.add("status = %[1]s", filter.Status)
	}
	if filter.DateFrom != nil {
		where.add("created_at >= %[1]s", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where.add("created_at <= %[1]s", *filter.DateTo)
	}
	if filter.Search != "" {
		where.add("(transaction_id ILIKE %[1]s OR notes ILIKE %[1]s)", likePattern(filter.Search))
	}

	orderBy, ok := transactionOrderings[filter.OrderingOrDefault()]
	if !ok {
		orderBy = transactionOrderings[domain.OrderCreatedAtDesc]
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where.String() + ` ORDER BY ` + orderBy + `, id`

	rows, err := r.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []*domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
