package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(name string, stock int) *domain.Product {
	now := time.Now().UTC()
	p := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString("1.00"),
		Stock:       stock,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.EnsureSlug()
	return p
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	p := newProduct("Bolt", 5)
	require.NoError(t, store.Repositories().Products.Create(ctx, p))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Products.SetStock(ctx, p.ID, 99); err != nil {
			return err
		}
		if err := repos.Movements.Append(ctx, &domain.StockMovement{ID: uuid.New(), ProductID: p.ID, Delta: 94}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := store.Repositories().Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Stock)

	movements, err := store.Repositories().Movements.List(ctx, domain.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	store := New()
	ctx := context.Background()
	p := newProduct("Rivet", 5)
	require.NoError(t, store.Repositories().Products.Create(ctx, p))

	assert.PanicsWithValue(t, "boom", func() {
		_ = store.WithinTx(ctx, func(repos repository.Repositories) error {
			if err := repos.Products.SetStock(ctx, p.ID, 0); err != nil {
				return err
			}
			panic("boom")
		})
	})

	found, err := store.Repositories().Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Stock)

	// the lock is released after the panic
	require.NoError(t, store.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Products.SetStock(ctx, p.ID, 4)
	}))
}

func TestWithinTxCommits(t *testing.T) {
	store := New()
	ctx := context.Background()
	p := newProduct("Nut", 1)

	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Products.Create(ctx, p); err != nil {
			return err
		}
		return repos.Products.SetStock(ctx, p.ID, 4)
	})
	require.NoError(t, err)

	found, err := store.Repositories().Products.FindBySlug(ctx, "nut")
	require.NoError(t, err)
	assert.Equal(t, 4, found.Stock)
}

func TestWithinTxHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().WithinTx(ctx, func(repository.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestProductUpdateKeepsStock(t *testing.T) {
	store := New()
	ctx := context.Background()
	p := newProduct("Washer", 7)
	require.NoError(t, store.Repositories().Products.Create(ctx, p))

	changed := *p
	changed.Stock = 0
	changed.Name = "Big Washer"
	require.NoError(t, store.Repositories().Products.Update(ctx, &changed))
	assert.Equal(t, 7, changed.Stock)

	other := newProduct("Washer", 0)
	assert.ErrorIs(t, store.Repositories().Products.Create(ctx, other), repository.ErrSlugTaken)
}

func TestLockStockMissingProduct(t *testing.T) {
	store := New()
	_, err := store.Repositories().Products.LockStock(context.Background(), []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestTransactionDeleteCascadesItems(t *testing.T) {
	store := New()
	ctx := context.Background()
	repos := store.Repositories()

	p := newProduct("Pin", 3)
	require.NoError(t, repos.Products.Create(ctx, p))

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SAL-20240101-0000AAAA",
		TransactionType: domain.TransactionTypeSale,
		Status:          domain.TransactionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repos.Transactions.Create(ctx, tx))

	dup := *tx
	dup.ID = uuid.New()
	assert.ErrorIs(t, repos.Transactions.Create(ctx, &dup), repository.ErrDuplicateIdentifier)

	item := &domain.TransactionItem{ID: uuid.New(), TransactionID: tx.ID, ProductID: p.ID, Quantity: 2, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repos.Items.Create(ctx, item))
	assert.ErrorIs(t, repos.Products.Delete(ctx, p.ID), repository.ErrProductInUse)

	items, err := repos.Items.List(ctx, domain.TransactionItemFilter{TransactionIdentifier: "SAL-20240101-0000AAAA"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Pin", items[0].Product.Name)

	require.NoError(t, repos.Transactions.Delete(ctx, tx.ID))
	_, err = repos.Items.FindByID(ctx, item.ID)
	assert.ErrorIs(t, err, repository.ErrTransactionItemNotFound)
	assert.NoError(t, repos.Products.Delete(ctx, p.ID))
}
