package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Office Chairs", "office-chairs"},
		{"accents folded", "Café Crème", "cafe-creme"},
		{"punctuation dropped", "Tools & Hardware!", "tools-hardware"},
		{"dashes collapse", "  a -- b  ", "a-b"},
		{"underscores kept", "snake_case name", "snake_case-name"},
		{"only symbols", "***", ""},
		{"non latin dropped", "日本 tea", "tea"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestEnsureSlugKeepsExistingSlug(t *testing.T) {
	c := &Category{Name: "Garden"}
	c.EnsureSlug()
	assert.Equal(t, "garden", c.Slug)

	c.Name = "Garden Furniture"
	c.EnsureSlug()
	assert.Equal(t, "garden", c.Slug, "rename must not re-derive the slug")
}

func TestTransactionTypePrefix(t *testing.T) {
	assert.Equal(t, "PUR", TransactionTypePurchase.Prefix())
	assert.Equal(t, "SAL", TransactionTypeSale.Prefix())
	assert.Equal(t, "RET", TransactionTypeReturn.Prefix())
	assert.Equal(t, "ADJ", TransactionTypeAdjustment.Prefix())
	assert.Equal(t, "TRX", TransactionType("transfer").Prefix())
	assert.False(t, TransactionType("transfer").Valid())
}

// Feature: inventory-ledger, Property 20: Transaction identifiers follow PREFIX-YYYYMMDD-XXXXXXXX
func TestProperty_TransactionIdentifierFormat(t *testing.T) {
	properties := gopter.NewProperties(nil)

	types := []TransactionType{
		TransactionTypePurchase, TransactionTypeSale, TransactionTypeReturn, TransactionTypeAdjustment,
	}

	properties.Property("identifier carries type prefix and creation date", prop.ForAll(
		func(typeIdx int, unix int64) bool {
			tt := types[typeIdx]
			created := time.Unix(unix, 0).UTC()
			id := NewTransactionIdentifier(tt, created)

			if !IsTransactionIdentifier(id) {
				t.Logf("FAIL: malformed identifier %q", id)
				return false
			}
			parts := strings.Split(id, "-")
			return parts[0] == tt.Prefix() && parts[1] == created.Format("20060102")
		},
		gen.IntRange(0, len(types)-1),
		gen.Int64Range(0, 4102444800),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: inventory-ledger, Property 21: Subtotal always equals quantity times unit price
func TestProperty_SubtotalConsistency(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("computed subtotal is quantity x unit_price", prop.ForAll(
		func(qty int, cents int64, bogus int64) bool {
			item := TransactionItem{
				Quantity:  qty,
				UnitPrice: decimal.New(cents, -2),
				Subtotal:  decimal.New(bogus, -2),
			}
			item.ComputeSubtotal()
			want := decimal.New(cents*int64(qty), -2)
			return item.Subtotal.Equal(want)
		},
		gen.IntRange(1, 10000),
		gen.Int64Range(0, 99999999),
		gen.Int64Range(-1000, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductFilterMatches(t *testing.T) {
	p := &Product{
		Name:         "Steel Hammer",
		Description:  "Forged head, oak handle",
		CategorySlug: "tools",
		Price:        decimal.RequireFromString("19.99"),
		IsAvailable:  true,
	}
	min := decimal.RequireFromString("10")
	max := decimal.RequireFromString("19.99")
	tooHigh := decimal.RequireFromString("20")
	no := false

	assert.True(t, ProductFilter{}.Matches(p))
	assert.True(t, ProductFilter{CategorySlug: "tools", MinPrice: &min, MaxPrice: &max}.Matches(p), "price bounds are inclusive")
	assert.True(t, ProductFilter{Search: "OAK"}.Matches(p))
	assert.True(t, ProductFilter{Name: "hammer"}.Matches(p))
	assert.False(t, ProductFilter{Name: "oak"}.Matches(p), "name filter ignores description")
	assert.False(t, ProductFilter{MinPrice: &tooHigh}.Matches(p))
	assert.False(t, ProductFilter{Available: &no}.Matches(p))
	assert.False(t, ProductFilter{CategorySlug: "garden", Search: "hammer"}.Matches(p), "filters combine with AND")
}

func TestTransactionFilterDateBoundsInclusive(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := &Transaction{TransactionID: "SAL-20240301-0A1B2C3D", CreatedAt: day, Notes: "walk-in"}

	assert.True(t, TransactionFilter{DateFrom: &day, DateTo: &day}.Matches(tx))
	assert.True(t, TransactionFilter{Search: "0a1b"}.Matches(tx))
	assert.True(t, TransactionFilter{Search: "WALK"}.Matches(tx))

	later := day.Add(time.Second)
	assert.False(t, TransactionFilter{DateFrom: &later}.Matches(tx))
	assert.Equal(t, OrderCreatedAtDesc, TransactionFilter{}.OrderingOrDefault())
	assert.False(t, TransactionOrdering("name").Valid())
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("name", "is required")
	err.Add("price", "must be >= 0")
	assert.True(t, err.HasErrors())
	assert.Equal(t, "validation failed: name: is required; price: must be >= 0", err.Error())
}
