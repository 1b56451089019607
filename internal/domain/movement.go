package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementReason records why a product's stock changed
type MovementReason string

const (
	ReasonItemCreated        MovementReason = "item_created"
	ReasonItemUpdated        MovementReason = "item_updated"
	ReasonItemDeleted        MovementReason = "item_deleted"
	ReasonItemsReplaced      MovementReason = "items_replaced"
	ReasonTransactionDeleted MovementReason = "transaction_deleted"
	ReasonTransactionRetyped MovementReason = "transaction_retyped"
	ReasonManualAdjustment   MovementReason = "manual_adjustment"
	ReasonInitialStock       MovementReason = "initial_stock"
)

// StockMovement is an append-only journal row for a committed stock change
type StockMovement struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	ProductID     uuid.UUID      `json:"product_id" db:"product_id"`
	TransactionID *uuid.UUID     `json:"transaction,omitempty" db:"transaction_id"`
	Identifier    string         `json:"transaction_id,omitempty" db:"transaction_identifier"`
	ItemID        *uuid.UUID     `json:"item_id,omitempty" db:"item_id"`
	Delta         int            `json:"delta" db:"delta"`
	StockAfter    int            `json:"stock_after" db:"stock_after"`
	Reason        MovementReason `json:"reason" db:"reason"`
	Note          string         `json:"note,omitempty" db:"note"`
	Actor         string         `json:"actor,omitempty" db:"actor"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}
