package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryFilter narrows category listings. Zero values mean no constraint.
type CategoryFilter struct {
	Name string
}

// Matches reports whether c satisfies every set constraint
func (f CategoryFilter) Matches(c *Category) bool {
	return f.Name == "" || containsFold(c.Name, f.Name)
}

// ProductFilter narrows product listings
type ProductFilter struct {
	CategorySlug string
	Name         string
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Available    *bool
}

func (f ProductFilter) Matches(p *Product) bool {
	if f.CategorySlug != "" && p.CategorySlug != f.CategorySlug {
		return false
	}
	if f.Name != "" && !containsFold(p.Name, f.Name) {
		return false
	}
	if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Available != nil && p.IsAvailable != *f.Available {
		return false
	}
	return true
}

// TransactionOrdering is one of the whitelisted sort orders for transactions
type TransactionOrdering string

const (
	OrderCreatedAtAsc    TransactionOrdering = "created_at"
	OrderCreatedAtDesc   TransactionOrdering = "-created_at"
	OrderTotalAmountAsc  TransactionOrdering = "total_amount"
	OrderTotalAmountDesc TransactionOrdering = "-total_amount"
)

// Valid reports whether o is a supported ordering
func (o TransactionOrdering) Valid() bool {
	switch o {
	case OrderCreatedAtAsc, OrderCreatedAtDesc, OrderTotalAmountAsc, OrderTotalAmountDesc:
		return true
	}
	return false
}

// TransactionFilter narrows transaction listings. DateFrom and DateTo are
// inclusive bounds on created_at.
type TransactionFilter struct {
	Type     TransactionType
	Status   TransactionStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Ordering TransactionOrdering
}

func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.Type != "" && t.TransactionType != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.DateFrom != nil && t.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" && !containsFold(t.TransactionID, f.Search) && !containsFold(t.Notes, f.Search) {
		return false
	}
	return true
}

// OrderingOrDefault returns the ordering, falling back to newest first
func (f TransactionFilter) OrderingOrDefault() TransactionOrdering {
	if f.Ordering == "" {
		return OrderCreatedAtDesc
	}
	return f.Ordering
}

// TransactionItemFilter narrows line item listings. TransactionIdentifier is
// the human readable transaction identifier, not the row id.
type TransactionItemFilter struct {
	TransactionIdentifier string
	ProductID             *uuid.UUID
}

// MovementFilter narrows stock movement listings
type MovementFilter struct {
	ProductID             *uuid.UUID
	TransactionIdentifier string
}

func (f MovementFilter) Matches(m *StockMovement) bool {
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.TransactionIdentifier != "" && m.Identifier != f.TransactionIdentifier {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
