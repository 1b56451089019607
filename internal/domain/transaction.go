package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies how a transaction's line items move stock
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeSale       TransactionType = "sale"
	TransactionTypeReturn     TransactionType = "return"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

var transactionTypeLabels = map[TransactionType]string{
	TransactionTypePurchase:   "Purchase",
	TransactionTypeSale:       "Sale",
	TransactionTypeReturn:     "Return",
	TransactionTypeAdjustment: "Adjustment",
}

var transactionPrefixes = map[TransactionType]string{
	TransactionTypePurchase:   "PUR",
	TransactionTypeSale:       "SAL",
	TransactionTypeReturn:     "RET",
	TransactionTypeAdjustment: "ADJ",
}

var transactionStatusLabels = map[TransactionStatus]string{
	TransactionStatusPending:   "Pending",
	TransactionStatusCompleted: "Completed",
	TransactionStatusCancelled: "Cancelled",
}

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	_, ok := transactionTypeLabels[t]
	return ok
}

// Label returns the human readable name of the type
func (t TransactionType) Label() string {
	if label, ok := transactionTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Prefix returns the identifier prefix for the type. Unknown types map to TRX.
func (t TransactionType) Prefix() string {
	if prefix, ok := transactionPrefixes[t]; ok {
		return prefix
	}
	return "TRX"
}

// Valid reports whether s is one of the known statuses
func (s TransactionStatus) Valid() bool {
	_, ok := transactionStatusLabels[s]
	return ok
}

// Label returns the human readable name of the status
func (s TransactionStatus) Label() string {
	if label, ok := transactionStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Transaction is a ledger entry grouping line items of one type
type Transaction struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	TransactionID   string            `json:"transaction_id" db:"transaction_id"`
	TransactionType TransactionType   `json:"transaction_type" db:"transaction_type"`
	Status          TransactionStatus `json:"status" db:"status"`
	TotalAmount     decimal.Decimal   `json:"total_amount" db:"total_amount"`
	Notes           string            `json:"notes" db:"notes"`
	Items           []TransactionItem `json:"items"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// TransactionItem is a single product line of a transaction
type TransactionItem struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TransactionID uuid.UUID       `json:"transaction" db:"transaction_id"`
	ProductID     uuid.UUID       `json:"product" db:"product_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Product       *ProductDetails `json:"product_details,omitempty"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductDetails is the product summary embedded in item responses
type ProductDetails struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// MaxSubtotal is the largest line subtotal a NUMERIC(12,2) column holds
var MaxSubtotal = decimal.RequireFromString("9999999999.99")

// ComputeSubtotal sets Subtotal to Quantity x UnitPrice rounded to cents.
// It is called on every save so a client supplied subtotal never persists.
func (i *TransactionItem) ComputeSubtotal() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}
