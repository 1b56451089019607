// Package stock applies inventory deltas for ledger changes.
//
// Callers describe a logical change as a Plan: line items applied or
// reversed under a transaction type, plus manual deltas. Commit aggregates
// the plan into one net delta per product, locks the affected products in
// ascending id order, rejects any result below zero or above
// domain.MaxStock, then writes the new
// stock and one journal row per product. Commit must run inside the same unit
// of work as the line item writes it accompanies.
package stock

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"inventory-ledger/internal/domain"

	"github.com/google/uuid"
)

// Effect returns the signed stock change of applying qty units under t
func Effect(t domain.TransactionType, qty int) int {
	switch t {
	case domain.TransactionTypePurchase, domain.TransactionTypeReturn:
		return qty
	case domain.TransactionTypeSale:
		return -qty
	default:
		return 0
	}
}

// ReversalEffect is the exact negation of Effect
func ReversalEffect(t domain.TransactionType, qty int) int {
	return -Effect(t, qty)
}

// ProductStock is the product store view the engine needs
type ProductStock interface {
	LockStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
}

// MovementRecorder appends journal rows
type MovementRecorder interface {
	Append(ctx context.Context, movement *domain.StockMovement) error
}

// Observer is notified about committed and rejected changes
type Observer interface {
	StockCommitted(reason domain.MovementReason, delta int)
	StockRejected(reason domain.MovementReason)
}

// Engine commits plans. It holds no stock state of its own.
type Engine struct {
	now      func() time.Time
	observer Observer
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the clock used to stamp movements
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver registers an observer for commit outcomes
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an Engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Commit applies the plan's net deltas. Either every product is updated and
// journaled or an error is returned before any stock is written.
func (e *Engine) Commit(ctx context.Context, products ProductStock, movements MovementRecorder, plan *Plan) ([]domain.StockMovement, error) {
	if plan.oversized != nil {
		e.rejected(plan)
		return nil, exceedsLimit(*plan.oversized)
	}

	ids := plan.ProductIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	current, err := products.LockStock(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock: %w", err)
	}

	for _, id := range ids {
		delta := plan.deltas[id]
		available := current[id]
		switch after := available + delta; {
		case after < 0:
			e.rejected(plan)
			return nil, &domain.InsufficientStockError{ProductID: id, Requested: -delta, Available: available}
		case after > domain.MaxStock:
			e.rejected(plan)
			return nil, exceedsLimit(id)
		}
	}

	now := e.now().UTC()
	committed := make([]domain.StockMovement, 0, len(ids))
	for _, id := range ids {
		delta := plan.deltas[id]
		after := current[id] + delta
		if err := products.SetStock(ctx, id, after); err != nil {
			return nil, fmt.Errorf("failed to update stock: %w", err)
		}

		movement := domain.StockMovement{
			ID:            uuid.New(),
			ProductID:     id,
			TransactionID: plan.TransactionID,
			Identifier:    plan.Identifier,
			ItemID:        plan.itemFor(id),
			Delta:         delta,
			StockAfter:    after,
			Reason:        plan.Reason,
			Note:          plan.Note,
			Actor:         plan.Actor,
			CreatedAt:     now,
		}
		if err := movements.Append(ctx, &movement); err != nil {
			return nil, fmt.Errorf("failed to record stock movement: %w", err)
		}
		committed = append(committed, movement)

		if e.observer != nil {
			e.observer.StockCommitted(plan.Reason, delta)
		}
	}

	return committed, nil
}

func (e *Engine) rejected(plan *Plan) {
	if e.observer != nil {
		e.observer.StockRejected(plan.Reason)
	}
}

func exceedsLimit(id uuid.UUID) error {
	return domain.NewValidationError("stock", fmt.Sprintf("stock of product %s would exceed %d", id, domain.MaxStock))
}

// Plan accumulates the stock effect of one logical ledger change
type Plan struct {
	Reason        domain.MovementReason
	TransactionID *uuid.UUID
	Identifier    string
	Actor         string
	Note          string

	deltas map[uuid.UUID]int
	items  map[uuid.UUID]uuid.UUID
	mixed  map[uuid.UUID]bool

	// first product given a single delta beyond MaxStock; such a plan
	// never commits, even when its deltas would cancel out
	oversized *uuid.UUID
}

// NewPlan creates an empty plan journaled under reason
func NewPlan(reason domain.MovementReason) *Plan {
	return &Plan{
		Reason: reason,
		deltas: map[uuid.UUID]int{},
		items:  map[uuid.UUID]uuid.UUID{},
		mixed:  map[uuid.UUID]bool{},
	}
}

// For ties the plan's journal rows to a transaction
func (p *Plan) For(tx *domain.Transaction) *Plan {
	id := tx.ID
	p.TransactionID = &id
	p.Identifier = tx.TransactionID
	return p
}

// By records who caused the change
func (p *Plan) By(actor string) *Plan {
	p.Actor = actor
	return p
}

// Apply adds the effect of item under t
func (p *Plan) Apply(t domain.TransactionType, item domain.TransactionItem) {
	p.add(item.ProductID, Effect(t, item.Quantity), item.ID)
}

// Reverse adds the reversal of item under t, using the item's recorded quantity
func (p *Plan) Reverse(t domain.TransactionType, item domain.TransactionItem) {
	p.add(item.ProductID, ReversalEffect(t, item.Quantity), item.ID)
}

// Adjust adds a signed delta not tied to a line item
func (p *Plan) Adjust(productID uuid.UUID, delta int) {
	p.add(productID, delta, uuid.Nil)
}

func (p *Plan) add(productID uuid.UUID, delta int, itemID uuid.UUID) {
	if delta == 0 {
		return
	}
	if delta > domain.MaxStock || delta < -domain.MaxStock {
		if p.oversized == nil {
			p.oversized = &productID
		}
		return
	}
	p.deltas[productID] += delta

	if itemID == uuid.Nil {
		p.mixed[productID] = true
		return
	}
	if prev, ok := p.items[productID]; ok && prev != itemID {
		p.mixed[productID] = true
	}
	p.items[productID] = itemID
}

// Delta returns the net delta planned for a product
func (p *Plan) Delta(productID uuid.UUID) int {
	return p.deltas[productID]
}

// ProductIDs returns products with a non-zero net delta in ascending id order
func (p *Plan) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.deltas))
	for id, delta := range p.deltas {
		if delta != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Empty reports whether committing the plan would change nothing
func (p *Plan) Empty() bool {
	return p.oversized == nil && len(p.ProductIDs()) == 0
}

// itemFor returns the single line item behind a product's delta, if any
func (p *Plan) itemFor(productID uuid.UUID) *uuid.UUID {
	if p.mixed[productID] {
		return nil
	}
	id, ok := p.items[productID]
	if !ok {
		return nil
	}
	return &id
}
