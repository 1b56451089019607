package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/stock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxIdentifierAttempts bounds identifier regeneration on collisions
const MaxIdentifierAttempts = 5

var ErrItemTransactionImmutable = errors.New("a line item cannot be moved to another transaction")

// ItemInput carries one line item of a transaction write
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// TransactionInput carries the fields of a new transaction
type TransactionInput struct {
	TransactionType domain.TransactionType
	Status          domain.TransactionStatus
	TotalAmount     decimal.Decimal
	Notes           string
	Items           []ItemInput
}

// TransactionPatch carries transaction fields to change; nil means keep.
// A non-nil Items replaces the whole item set.
type TransactionPatch struct {
	TransactionType *domain.TransactionType
	Status          *domain.TransactionStatus
	TotalAmount     *decimal.Decimal
	Notes           *string
	Items           *[]ItemInput
}

// ItemPatch carries line item fields to change; nil means keep
type ItemPatch struct {
	TransactionID *uuid.UUID
	ProductID     *uuid.UUID
	Quantity      *int
	UnitPrice     *decimal.Decimal
}

// LedgerService manages transactions and their line items. Every write runs
// in one unit of work together with the stock changes it causes.
type LedgerService interface {
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, in TransactionInput) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, patch TransactionPatch) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, filter domain.TransactionItemFilter) ([]*domain.TransactionItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*domain.TransactionItem, error)
	CreateItem(ctx context.Context, transactionID uuid.UUID, in ItemInput) (*domain.TransactionItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, patch ItemPatch) (*domain.TransactionItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]*domain.StockMovement, error)
}

// IdentifierFunc generates a transaction identifier
type IdentifierFunc func(t domain.TransactionType, createdAt time.Time) string

type ledgerService struct {
	store      repository.Store
	engine     *stock.Engine
	logger     *zap.Logger
	now        func() time.Time
	identifier IdentifierFunc
}

// LedgerOption configures a LedgerService
type LedgerOption func(*ledgerService)

// WithLedgerClock overrides the clock used for timestamps and identifiers
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) { s.now = now }
}

// WithIdentifierFunc overrides identifier generation
func WithIdentifierFunc(fn IdentifierFunc) LedgerOption {
	return func(s *ledgerService) { s.identifier = fn }
}

// NewLedgerService creates a new instance of LedgerService
func NewLedgerService(store repository.Store, engine *stock.Engine, logger *zap.Logger, opts ...LedgerOption) LedgerService {
	s := &ledgerService{
		store:      store,
		engine:     engine,
		logger:     logger,
		now:        time.Now,
		identifier: domain.NewTransactionIdentifier,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateItem(verr *domain.ValidationError, field string, in ItemInput) {
	if in.ProductID == uuid.Nil {
		verr.Add(field+"product", "this field is required")
	}
	switch {
	case in.Quantity < 1:
		verr.Add(field+"quantity", "ensure this value is greater than or equal to 1")
	case in.Quantity > domain.MaxStock:
		verr.Add(field+"quantity", fmt.Sprintf("ensure this value is less than or equal to %d", domain.MaxStock))
	}
	before := len(verr.Errors)
	validateAmount(verr, field+"unit_price", in.UnitPrice)
	if len(verr.Errors) > before || in.Quantity < 1 || in.Quantity > domain.MaxStock {
		return
	}
	item := domain.TransactionItem{Quantity: in.Quantity, UnitPrice: in.UnitPrice}
	item.ComputeSubtotal()
	if item.Subtotal.GreaterThan(domain.MaxSubtotal) {
		verr.Add(field+"quantity", "ensure quantity x unit_price has no more than 12 digits in total")
	}
}

func validateAmount(verr *domain.ValidationError, field string, amount decimal.Decimal) {
	switch {
	case amount.IsNegative():
		verr.Add(field, "ensure this value is greater than or equal to 0")
	case amount.GreaterThan(MaxPrice):
		verr.Add(field, "ensure there are no more than 10 digits in total")
	case !amount.Equal(amount.Round(2)):
		verr.Add(field, "ensure there are no more than 2 decimal places")
	}
}

func validateTransaction(tx *domain.Transaction, items []ItemInput) error {
	verr := &domain.ValidationError{}
	if !tx.TransactionType.Valid() {
		verr.Add("transaction_type", fmt.Sprintf("%q is not a valid choice", tx.TransactionType))
	}
	if !tx.Status.Valid() {
		verr.Add("status", fmt.Sprintf("%q is not a valid choice", tx.Status))
	}
	validateAmount(verr, "total_amount", tx.TotalAmount)
	for i, item := range items {
		validateItem(verr, fmt.Sprintf("items[%d].", i), item)
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (s *ledgerService) newItem(transactionID uuid.UUID, in ItemInput, now time.Time) *domain.TransactionItem {
	item := &domain.TransactionItem{
		ID:            uuid.New(),
		TransactionID: transactionID,
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	item.ComputeSubtotal()
	return item
}

func (s *ledgerService) withItems(ctx context.Context, repos repository.Repositories, txs ...*domain.Transaction) error {
	ids := make([]uuid.UUID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	byTx, err := repos.Items.ListByTransactions(ctx, ids)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		tx.Items = byTx[tx.ID]
		if tx.Items == nil {
			tx.Items = []domain.TransactionItem{}
		}
	}
	return nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	repos := s.store.Repositories()
	txs, err := repos.Transactions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if err := s.withItems(ctx, repos, txs...); err != nil {
		return nil, fmt.Errorf("failed to load transaction items: %w", err)
	}
	return txs, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	repos := s.store.Repositories()
	tx, err := repos.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withItems(ctx, repos, tx); err != nil {
		return nil, fmt.Errorf("failed to load transaction items: %w", err)
	}
	return tx, nil
}

// CreateTransaction stores the transaction and its items and applies their
// stock effect. An identifier collision rolls the unit of work back and the
// whole write is retried with a fresh identifier.
func (s *ledgerService) CreateTransaction(ctx context.Context, in TransactionInput) (*domain.Transaction, error) {
	if in.Status == "" {
		in.Status = domain.TransactionStatusPending
	}

	for attempt := 1; attempt <= MaxIdentifierAttempts; attempt++ {
		now := s.now().UTC()
		tx := &domain.Transaction{
			ID:              uuid.New(),
			TransactionID:   s.identifier(in.TransactionType, now),
			TransactionType: in.TransactionType,
			Status:          in.Status,
			TotalAmount:     in.TotalAmount,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := validateTransaction(tx, in.Items); err != nil {
			return nil, err
		}

		err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
			if err := repos.Transactions.Create(ctx, tx); err != nil {
				return err
			}

			plan := stock.NewPlan(domain.ReasonItemCreated).For(tx).By(ActorFrom(ctx))
			for _, in := range in.Items {
				item := s.newItem(tx.ID, in, now)
				if err := repos.Items.Create(ctx, item); err != nil {
					return err
				}
				plan.Apply(tx.TransactionType, *item)
			}

			if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
				return err
			}
			return s.withItems(ctx, repos, tx)
		})
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, repository.ErrDuplicateIdentifier) {
			return nil, err
		}

		s.logger.Warn("Transaction identifier collision, regenerating",
			zap.String("transaction_id", tx.TransactionID),
			zap.Int("attempt", attempt),
		)
	}

	return nil, fmt.Errorf("failed to allocate a transaction identifier after %d attempts: %w",
		MaxIdentifierAttempts, repository.ErrDuplicateIdentifier)
}

// UpdateTransaction applies patch. Replacing items reverses every stored
// item and applies every new one; changing only the type re-books the
// existing items under the new type. Both net into one commit.
func (s *ledgerService) UpdateTransaction(ctx context.Context, id uuid.UUID, patch TransactionPatch) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		tx, err = repos.Transactions.LockByID(ctx, id)
		if err != nil {
			return err
		}
		oldType := tx.TransactionType

		if patch.TransactionType != nil {
			tx.TransactionType = *patch.TransactionType
		}
		if patch.Status != nil {
			tx.Status = *patch.Status
		}
		if patch.TotalAmount != nil {
			tx.TotalAmount = *patch.TotalAmount
		}
		if patch.Notes != nil {
			tx.Notes = *patch.Notes
		}
		var newItems []ItemInput
		if patch.Items != nil {
			newItems = *patch.Items
		}
		if err := validateTransaction(tx, newItems); err != nil {
			return err
		}

		now := s.now().UTC()
		tx.UpdatedAt = now
		if err := repos.Transactions.Update(ctx, tx); err != nil {
			return err
		}

		existing, err := repos.Items.ListByTransaction(ctx, tx.ID)
		if err != nil {
			return err
		}

		var plan *stock.Plan
		switch {
		case patch.Items != nil:
			plan = stock.NewPlan(domain.ReasonItemsReplaced)
			for _, item := range existing {
				plan.Reverse(oldType, item)
				if err := repos.Items.Delete(ctx, item.ID); err != nil {
					return err
				}
			}
			for _, in := range newItems {
				item := s.newItem(tx.ID, in, now)
				if err := repos.Items.Create(ctx, item); err != nil {
					return err
				}
				plan.Apply(tx.TransactionType, *item)
			}
		case oldType != tx.TransactionType:
			plan = stock.NewPlan(domain.ReasonTransactionRetyped)
			for _, item := range existing {
				plan.Reverse(oldType, item)
				plan.Apply(tx.TransactionType, item)
			}
		default:
			return s.withItems(ctx, repos, tx)
		}

		plan.For(tx).By(ActorFrom(ctx))
		if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
			return err
		}
		return s.withItems(ctx, repos, tx)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// DeleteTransaction reverses every item before the transaction and its
// items are removed
func (s *ledgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		tx, err := repos.Transactions.LockByID(ctx, id)
		if err != nil {
			return err
		}

		items, err := repos.Items.ListByTransaction(ctx, tx.ID)
		if err != nil {
			return err
		}

		plan := stock.NewPlan(domain.ReasonTransactionDeleted).For(tx).By(ActorFrom(ctx))
		for _, item := range items {
			plan.Reverse(tx.TransactionType, item)
		}
		if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
			return err
		}

		return repos.Transactions.Delete(ctx, tx.ID)
	})
}

func (s *ledgerService) ListItems(ctx context.Context, filter domain.TransactionItemFilter) ([]*domain.TransactionItem, error) {
	items, err := s.store.Repositories().Items.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction items: %w", err)
	}
	return items, nil
}

func (s *ledgerService) GetItem(ctx context.Context, id uuid.UUID) (*domain.TransactionItem, error) {
	return s.store.Repositories().Items.FindByID(ctx, id)
}

func (s *ledgerService) CreateItem(ctx context.Context, transactionID uuid.UUID, in ItemInput) (*domain.TransactionItem, error) {
	verr := &domain.ValidationError{}
	if transactionID == uuid.Nil {
		verr.Add("transaction", "this field is required")
	}
	validateItem(verr, "", in)
	if verr.HasErrors() {
		return nil, verr
	}

	var created *domain.TransactionItem
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		tx, err := repos.Transactions.LockByID(ctx, transactionID)
		if err != nil {
			return err
		}

		item := s.newItem(tx.ID, in, s.now().UTC())
		if err := repos.Items.Create(ctx, item); err != nil {
			return err
		}

		plan := stock.NewPlan(domain.ReasonItemCreated).For(tx).By(ActorFrom(ctx))
		plan.Apply(tx.TransactionType, *item)
		if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
			return err
		}

		created, err = repos.Items.FindByID(ctx, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateItem re-books an item: the stored quantity and product are reversed
// and the new ones applied, netting to one delta per product.
func (s *ledgerService) UpdateItem(ctx context.Context, id uuid.UUID, patch ItemPatch) (*domain.TransactionItem, error) {
	var updated *domain.TransactionItem
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Items.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.TransactionID != nil && *patch.TransactionID != current.TransactionID {
			return ErrItemTransactionImmutable
		}

		tx, err := repos.Transactions.LockByID(ctx, current.TransactionID)
		if err != nil {
			return err
		}
		// re-read under the transaction lock
		current, err = repos.Items.FindByID(ctx, id)
		if err != nil {
			return err
		}

		next := *current
		if patch.ProductID != nil {
			next.ProductID = *patch.ProductID
		}
		if patch.Quantity != nil {
			next.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			next.UnitPrice = *patch.UnitPrice
		}

		verr := &domain.ValidationError{}
		validateItem(verr, "", ItemInput{ProductID: next.ProductID, Quantity: next.Quantity, UnitPrice: next.UnitPrice})
		if verr.HasErrors() {
			return verr
		}

		next.ComputeSubtotal()
		next.UpdatedAt = s.now().UTC()
		if err := repos.Items.Update(ctx, &next); err != nil {
			return err
		}

		plan := stock.NewPlan(domain.ReasonItemUpdated).For(tx).By(ActorFrom(ctx))
		plan.Reverse(tx.TransactionType, *current)
		plan.Apply(tx.TransactionType, next)
		if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
			return err
		}

		updated, err = repos.Items.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem reverses the stored item's effect and removes it
func (s *ledgerService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		item, err := repos.Items.FindByID(ctx, id)
		if err != nil {
			return err
		}

		tx, err := repos.Transactions.LockByID(ctx, item.TransactionID)
		if err != nil {
			return err
		}
		item, err = repos.Items.FindByID(ctx, id)
		if err != nil {
			return err
		}

		plan := stock.NewPlan(domain.ReasonItemDeleted).For(tx).By(ActorFrom(ctx))
		plan.Reverse(tx.TransactionType, *item)
		if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
			return err
		}

		return repos.Items.Delete(ctx, id)
	})
}

func (s *ledgerService) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]*domain.StockMovement, error) {
	movements, err := s.store.Repositories().Movements.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}
