// Package memory provides an in-process implementation of repository.Store.
// Units of work are serialized by a single mutex and rolled back by
// restoring a snapshot taken when the unit began.
package memory

import (
	"context"
	"sync"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	categories   map[uuid.UUID]domain.Category
	products     map[uuid.UUID]domain.Product
	transactions map[uuid.UUID]domain.Transaction
	items        map[uuid.UUID]domain.TransactionItem
	movements    []domain.StockMovement
	users        map[uuid.UUID]domain.User
	tokens       map[string]domain.RefreshToken
}

func newState() *state {
	return &state{
		categories:   map[uuid.UUID]domain.Category{},
		products:     map[uuid.UUID]domain.Product{},
		transactions: map[uuid.UUID]domain.Transaction{},
		items:        map[uuid.UUID]domain.TransactionItem{},
		users:        map[uuid.UUID]domain.User{},
		tokens:       map[string]domain.RefreshToken{},
	}
}

func (s *state) clone() *state {
	c := &state{
		categories:   make(map[uuid.UUID]domain.Category, len(s.categories)),
		products:     make(map[uuid.UUID]domain.Product, len(s.products)),
		transactions: make(map[uuid.UUID]domain.Transaction, len(s.transactions)),
		items:        make(map[uuid.UUID]domain.TransactionItem, len(s.items)),
		movements:    append([]domain.StockMovement(nil), s.movements...),
		users:        make(map[uuid.UUID]domain.User, len(s.users)),
		tokens:       make(map[string]domain.RefreshToken, len(s.tokens)),
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

// Store is an in-memory repository.Store
type Store struct {
	mu   sync.RWMutex
	data *state
}

// New creates an empty Store
func New() *Store {
	return &Store{data: newState()}
}

// access wraps the store for one repository view. Inside a unit of work the
// mutex is already held, so the view must not lock again.
type access struct {
	store *Store
	inTx  bool
}

func (a access) read(fn func(st *state) error) error {
	if !a.inTx {
		a.store.mu.RLock()
		defer a.store.mu.RUnlock()
	}
	return fn(a.store.data)
}

func (a access) write(fn func(st *state) error) error {
	if !a.inTx {
		a.store.mu.Lock()
		defer a.store.mu.Unlock()
	}
	return fn(a.store.data)
}

func (s *Store) repositories(inTx bool) repository.Repositories {
	a := access{store: s, inTx: inTx}
	return repository.Repositories{
		Categories:    &categoryRepository{a},
		Products:      &productRepository{a},
		Transactions:  &transactionRepository{a},
		Items:         &itemRepository{a},
		Movements:     &movementRepository{a},
		Users:         &userRepository{a},
		RefreshTokens: &refreshTokenRepository{a},
	}
}

// Repositories returns repositories that lock per call
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(false)
}

// WithinTx runs fn with exclusive access to the store. If fn fails or
// panics every change it made is discarded; a panic is re-raised after
// the rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
	}()

	if err = fn(s.repositories(true)); err != nil {
		s.data = snapshot
	}
	return err
}
