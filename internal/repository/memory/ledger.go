package memory

import (
	"context"
	"sort"
	"time"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"

	"github.com/google/uuid"
)

func newerFirst(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID.String() < bID.String()
}

func olderFirst(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return aID.String() < bID.String()
}

type transactionRepository struct{ access }

func (r *transactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	return r.write(func(st *state) error {
		for _, existing := range st.transactions {
			if existing.TransactionID == tx.TransactionID {
				return repository.ErrDuplicateIdentifier
			}
		}
		stored := *tx
		stored.Items = nil
		st.transactions[tx.ID] = stored
		return nil
	})
}

func (r *transactionRepository) Update(_ context.Context, tx *domain.Transaction) error {
	return r.write(func(st *state) error {
		existing, ok := st.transactions[tx.ID]
		if !ok {
			return repository.ErrTransactionNotFound
		}
		existing.TransactionType = tx.TransactionType
		existing.Status = tx.Status
		existing.TotalAmount = tx.TotalAmount
		existing.Notes = tx.Notes
		existing.UpdatedAt = tx.UpdatedAt
		st.transactions[tx.ID] = existing
		return nil
	})
}

func (r *transactionRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.transactions[id]; !ok {
			return repository.ErrTransactionNotFound
		}
		delete(st.transactions, id)
		for itemID, item := range st.items {
			if item.TransactionID == id {
				delete(st.items, itemID)
			}
		}
		return nil
	})
}

func (r *transactionRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.read(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return repository.ErrTransactionNotFound
		}
		out = &tx
		return nil
	})
	return out, err
}

// LockByID is FindByID: units of work already hold the store exclusively
func (r *transactionRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.FindByID(ctx, id)
}

func (r *transactionRepository) List(_ context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	out := []*domain.Transaction{}
	err := r.read(func(st *state) error {
		for _, tx := range st.transactions {
			tx := tx
			if filter.Matches(&tx) {
				out = append(out, &tx)
			}
		}
		return nil
	})

	ordering := filter.OrderingOrDefault()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch ordering {
		case domain.OrderCreatedAtAsc:
			return olderFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		case domain.OrderTotalAmountAsc, domain.OrderTotalAmountDesc:
			if cmp := a.TotalAmount.Cmp(b.TotalAmount); cmp != 0 {
				if ordering == domain.OrderTotalAmountAsc {
					return cmp < 0
				}
				return cmp > 0
			}
			return a.ID.String() < b.ID.String()
		default:
			return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
		}
	})
	return out, err
}

type itemRepository struct{ access }

func withProduct(st *state, item domain.TransactionItem) *domain.TransactionItem {
	item.Product = nil
	if p, ok := st.products[item.ProductID]; ok {
		item.Product = &domain.ProductDetails{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
	}
	return &item
}

func (r *itemRepository) Create(_ context.Context, item *domain.TransactionItem) error {
	return r.write(func(st *state) error {
		if _, ok := st.transactions[item.TransactionID]; !ok {
			return repository.ErrTransactionNotFound
		}
		if _, ok := st.products[item.ProductID]; !ok {
			return repository.ErrProductNotFound
		}
		stored := *item
		stored.Product = nil
		st.items[item.ID] = stored
		return nil
	})
}

func (r *itemRepository) Update(_ context.Context, item *domain.TransactionItem) error {
	return r.write(func(st *state) error {
		existing, ok := st.items[item.ID]
		if !ok {
			return repository.ErrTransactionItemNotFound
		}
		if _, ok := st.products[item.ProductID]; !ok {
			return repository.ErrProductNotFound
		}
		existing.ProductID = item.ProductID
		existing.Quantity = item.Quantity
		existing.UnitPrice = item.UnitPrice
		existing.Subtotal = item.Subtotal
		existing.UpdatedAt = item.UpdatedAt
		st.items[item.ID] = existing
		return nil
	})
}

func (r *itemRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.items[id]; !ok {
			return repository.ErrTransactionItemNotFound
		}
		delete(st.items, id)
		return nil
	})
}

func (r *itemRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.TransactionItem, error) {
	var out *domain.TransactionItem
	err := r.read(func(st *state) error {
		item, ok := st.items[id]
		if !ok {
			return repository.ErrTransactionItemNotFound
		}
		out = withProduct(st, item)
		return nil
	})
	return out, err
}

func (r *itemRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionItem, error) {
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

func (r *itemRepository) ListByTransactions(_ context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID][]domain.TransactionItem, error) {
	wanted := make(map[uuid.UUID]bool, len(transactionIDs))
	for _, id := range transactionIDs {
		wanted[id] = true
	}

	var matched []*domain.TransactionItem
	err := r.read(func(st *state) error {
		for _, item := range st.items {
			if wanted[item.TransactionID] {
				matched = append(matched, withProduct(st, item))
			}
		}
		return nil
	})
	sortItems(matched)

	result := make(map[uuid.UUID][]domain.TransactionItem, len(transactionIDs))
	for _, item := range matched {
		result[item.TransactionID] = append(result[item.TransactionID], *item)
	}
	return result, err
}

func (r *itemRepository) List(_ context.Context, filter domain.TransactionItemFilter) ([]*domain.TransactionItem, error) {
	out := []*domain.TransactionItem{}
	err := r.read(func(st *state) error {
		for _, item := range st.items {
			if filter.ProductID != nil && item.ProductID != *filter.ProductID {
				continue
			}
			if filter.TransactionIdentifier != "" {
				tx, ok := st.transactions[item.TransactionID]
				if !ok || tx.TransactionID != filter.TransactionIdentifier {
					continue
				}
			}
			out = append(out, withProduct(st, item))
		}
		return nil
	})
	sortItems(out)
	return out, err
}

func (r *itemRepository) CountByProduct(_ context.Context, productID uuid.UUID) (int, error) {
	count := 0
	err := r.read(func(st *state) error {
		for _, item := range st.items {
			if item.ProductID == productID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func sortItems(items []*domain.TransactionItem) {
	sort.Slice(items, func(i, j int) bool {
		return olderFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID)
	})
}

type movementRepository struct{ access }

func (r *movementRepository) Append(_ context.Context, m *domain.StockMovement) error {
	return r.write(func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *movementRepository) List(_ context.Context, filter domain.MovementFilter) ([]*domain.StockMovement, error) {
	out := []*domain.StockMovement{}
	err := r.read(func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if filter.Matches(&m) {
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}
