package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxStock is the largest stock level or line quantity the INTEGER columns hold
const MaxStock = math.MaxInt32

// Product represents a product in the catalog
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	CategoryID   *uuid.UUID      `json:"category" db:"category_id"`
	CategoryName string          `json:"category_name" db:"category_name"`
	CategorySlug string          `json:"-" db:"category_slug"`
	Name         string          `json:"name" db:"name"`
	Slug         string          `json:"slug" db:"slug"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Stock        int             `json:"stock" db:"stock"`
	IsAvailable  bool            `json:"is_available" db:"is_available"`
	ImageURL     string          `json:"image" db:"image_url"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// EnsureSlug derives the slug from the name when none has been assigned yet.
// An existing slug is never re-derived, so renames keep the original slug.
func (c *Category) EnsureSlug() {
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
}

// EnsureSlug derives the slug from the name when none has been assigned yet.
func (p *Product) EnsureSlug() {
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
}
