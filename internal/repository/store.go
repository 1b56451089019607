package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need, so the same
// repository code runs inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repositories groups every repository bound to the same connection or transaction
type Repositories struct {
	Categories    CategoryRepository
	Products      ProductRepository
	Transactions  TransactionRepository
	Items         TransactionItemRepository
	Movements     StockMovementRepository
	Users         UserRepository
	RefreshTokens RefreshTokenRepository
}

// Store hands out repositories and runs units of work. Everything fn does
// through the supplied Repositories commits together or not at all.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type postgresStore struct {
	db *sql.DB
}

// NewStore creates a Store backed by PostgreSQL
func NewStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

// NewRepositories binds every repository to db
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Categories:    NewCategoryRepository(db),
		Products:      NewProductRepository(db),
		Transactions:  NewTransactionRepository(db),
		Items:         NewTransactionItemRepository(db),
		Movements:     NewStockMovementRepository(db),
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

func (s *postgresStore) Repositories() Repositories {
	return NewRepositories(s.db)
}

// WithinTx runs fn in a READ COMMITTED transaction. Stock rows are protected
// by explicit row locks taken by the caller.
func (s *postgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
