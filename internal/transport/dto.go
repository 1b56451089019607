package transport

import (
	"encoding/json"
	"time"

	"inventory-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// nullableUUID tells an absent field apart from an explicit null
type nullableUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (n *nullableUUID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

// CategoryRequest is the body of category writes
type CategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}

// ProductRequest is the body of product writes. Price and stock accept
// JSON numbers or strings.
type ProductRequest struct {
	Category    nullableUUID     `json:"category"`
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,decimal_gte0"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0,lte=2147483647"`
	IsAvailable *bool            `json:"is_available"`
	Image       *string          `json:"image" validate:"omitempty,max=500"`
}

// AdjustStockRequest is the body of POST /products/{slug}/adjust-stock
type AdjustStockRequest struct {
	Delta  *int   `json:"delta" validate:"required,gte=-2147483647,lte=2147483647"`
	Reason string `json:"reason" validate:"max=255"`
}

// ItemRequest is one line item, embedded in transaction writes or posted
// on its own with Transaction set
type ItemRequest struct {
	Transaction *uuid.UUID       `json:"transaction" validate:"omitempty,uuid_required"`
	Product     *uuid.UUID       `json:"product" validate:"omitempty,uuid_required"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=1,lte=2147483647"`
	UnitPrice   *decimal.Decimal `json:"unit_price" validate:"omitempty,decimal_gte0"`
}

// TransactionRequest is the body of transaction writes. Items, when
// present, replace the whole item set.
type TransactionRequest struct {
	TransactionType *string          `json:"transaction_type" validate:"omitempty,oneof=purchase sale return adjustment"`
	Status          *string          `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
	TotalAmount     *decimal.Decimal `json:"total_amount" validate:"omitempty,decimal_gte0"`
	Notes           *string          `json:"notes"`
	Items           *[]ItemRequest   `json:"items" validate:"omitempty,dive"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type ProductResponse struct {
	ID           uuid.UUID  `json:"id"`
	Category     *uuid.UUID `json:"category"`
	CategoryName *string    `json:"category_name"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	Price        string     `json:"price"`
	Stock        int        `json:"stock"`
	IsAvailable  bool       `json:"is_available"`
	Image        *string    `json:"image"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Category:    p.CategoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		IsAvailable: p.IsAvailable,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CategoryID != nil {
		name := p.CategoryName
		resp.CategoryName = &name
	}
	if p.ImageURL != "" {
		image := p.ImageURL
		resp.Image = &image
	}
	return resp
}

type ProductDetailsResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
	Stock int       `json:"stock"`
}

type ItemResponse struct {
	ID             uuid.UUID               `json:"id"`
	Transaction    uuid.UUID               `json:"transaction"`
	Product        uuid.UUID               `json:"product"`
	ProductDetails *ProductDetailsResponse `json:"product_details"`
	Quantity       int                     `json:"quantity"`
	UnitPrice      string                  `json:"unit_price"`
	Subtotal       string                  `json:"subtotal"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

func newItemResponse(i *domain.TransactionItem) ItemResponse {
	resp := ItemResponse{
		ID:          i.ID,
		Transaction: i.TransactionID,
		Product:     i.ProductID,
		Quantity:    i.Quantity,
		UnitPrice:   money(i.UnitPrice),
		Subtotal:    money(i.Subtotal),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.Product != nil {
		resp.ProductDetails = &ProductDetailsResponse{
			ID:    i.Product.ID,
			Name:  i.Product.Name,
			Price: money(i.Product.Price),
			Stock: i.Product.Stock,
		}
	}
	return resp
}

type TransactionResponse struct {
	ID                     uuid.UUID      `json:"id"`
	TransactionID          string         `json:"transaction_id"`
	TransactionType        string         `json:"transaction_type"`
	TransactionTypeDisplay string         `json:"transaction_type_display"`
	Status                 string         `json:"status"`
	StatusDisplay          string         `json:"status_display"`
	TotalAmount            string         `json:"total_amount"`
	Notes                  string         `json:"notes"`
	Items                  []ItemResponse `json:"items"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	items := make([]ItemResponse, 0, len(t.Items))
	for i := range t.Items {
		items = append(items, newItemResponse(&t.Items[i]))
	}
	return TransactionResponse{
		ID:                     t.ID,
		TransactionID:          t.TransactionID,
		TransactionType:        string(t.TransactionType),
		TransactionTypeDisplay: t.TransactionType.Label(),
		Status:                 string(t.Status),
		StatusDisplay:          t.Status.Label(),
		TotalAmount:            money(t.TotalAmount),
		Notes:                  t.Notes,
		Items:                  items,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

type MovementResponse struct {
	ID            uuid.UUID  `json:"id"`
	Product       uuid.UUID  `json:"product"`
	Transaction   *uuid.UUID `json:"transaction"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Item          *uuid.UUID `json:"item"`
	Delta         int        `json:"delta"`
	StockAfter    int        `json:"stock_after"`
	Reason        string     `json:"reason"`
	Note          string     `json:"note,omitempty"`
	Actor         string     `json:"actor,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func newMovementResponse(m *domain.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		Product:       m.ProductID,
		Transaction:   m.TransactionID,
		TransactionID: m.Identifier,
		Item:          m.ItemID,
		Delta:         m.Delta,
		StockAfter:    m.StockAfter,
		Reason:        string(m.Reason),
		Note:          m.Note,
		Actor:         m.Actor,
		CreatedAt:     m.CreatedAt,
	}
}

func mapSlice[T any, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
