package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/stock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxPrice is the largest value a NUMERIC(10,2) column holds
var MaxPrice = decimal.RequireFromString("99999999.99")

// CategoryInput carries the writable category fields
type CategoryInput struct {
	Name        string
	Description string
}

// CategoryPatch carries category fields to change; nil means keep
type CategoryPatch struct {
	Name        *string
	Description *string
}

// ProductInput carries the writable product fields
type ProductInput struct {
	CategoryID  *uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	IsAvailable *bool
	ImageURL    string
}

// ProductPatch carries product fields to change; nil means keep. A set
// CategorySet with a nil CategoryID clears the category. A set Stock is
// reconciled through the stock engine and journaled.
type ProductPatch struct {
	CategorySet bool
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	IsAvailable *bool
	ImageURL    *string
}

// CatalogService manages categories and products
type CatalogService interface {
	ListCategories(ctx context.Context, filter domain.CategoryFilter) ([]*domain.Category, error)
	GetCategory(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, slug string, patch CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, slug string) error

	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, slug string) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, slug string, patch ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, slug string) error
	AdjustStock(ctx context.Context, slug string, delta int, note string) (*domain.Product, *domain.StockMovement, error)
}

type catalogService struct {
	store  repository.Store
	engine *stock.Engine
	now    func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(store repository.Store, engine *stock.Engine) CatalogService {
	return &catalogService{store: store, engine: engine, now: time.Now}
}

func validateCategory(c *domain.Category) error {
	verr := &domain.ValidationError{}
	switch {
	case strings.TrimSpace(c.Name) == "":
		verr.Add("name", "this field is required")
	case len([]rune(c.Name)) > 100:
		verr.Add("name", "ensure this field has no more than 100 characters")
	case c.Slug == "":
		verr.Add("name", "must contain at least one letter or digit")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func validateProduct(p *domain.Product) error {
	verr := &domain.ValidationError{}
	switch {
	case strings.TrimSpace(p.Name) == "":
		verr.Add("name", "this field is required")
	case len([]rune(p.Name)) > 200:
		verr.Add("name", "ensure this field has no more than 200 characters")
	case p.Slug == "":
		verr.Add("name", "must contain at least one letter or digit")
	}
	if strings.TrimSpace(p.Description) == "" {
		verr.Add("description", "this field is required")
	}
	if p.Price.IsNegative() {
		verr.Add("price", "ensure this value is greater than or equal to 0")
	} else if p.Price.GreaterThan(MaxPrice) {
		verr.Add("price", "ensure there are no more than 10 digits in total")
	} else if !p.Price.Equal(p.Price.Round(2)) {
		verr.Add("price", "ensure there are no more than 2 decimal places")
	}
	switch {
	case p.Stock < 0:
		verr.Add("stock", "ensure this value is greater than or equal to 0")
	case p.Stock > domain.MaxStock:
		verr.Add("stock", fmt.Sprintf("ensure this value is less than or equal to %d", domain.MaxStock))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context, filter domain.CategoryFilter) ([]*domain.Category, error) {
	categories, err := s.store.Repositories().Categories.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) GetCategory(ctx context.Context, slug string) (*domain.Category, error) {
	return s.store.Repositories().Categories.FindBySlug(ctx, slug)
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	now := s.now().UTC()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	category.EnsureSlug()

	if err := validateCategory(category); err != nil {
		return nil, err
	}

	if err := s.store.Repositories().Categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory applies patch. The slug is kept even when the name changes.
func (s *catalogService) UpdateCategory(ctx context.Context, slug string, patch CategoryPatch) (*domain.Category, error) {
	var category *domain.Category
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		category, err = repos.Categories.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			category.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			category.Description = *patch.Description
		}
		category.EnsureSlug()
		category.UpdatedAt = s.now().UTC()

		if err := validateCategory(category); err != nil {
			return err
		}
		return repos.Categories.Update(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, slug string) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		category, err := repos.Categories.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}
		return repos.Categories.Delete(ctx, category.ID)
	})
}

func (s *catalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	products, err := s.store.Repositories().Products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	return s.store.Repositories().Products.FindBySlug(ctx, slug)
}

// CreateProduct inserts the product with zero stock and books any initial
// stock through the engine so it appears in the journal.
func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	now := s.now().UTC()
	product := &domain.Product{
		ID:          uuid.New(),
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		IsAvailable: true,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsAvailable != nil {
		product.IsAvailable = *in.IsAvailable
	}
	product.EnsureSlug()

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	var created *domain.Product
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		initial := product.Stock
		product.Stock = 0
		if err := repos.Products.Create(ctx, product); err != nil {
			return err
		}

		plan := stock.NewPlan(domain.ReasonInitialStock).By(ActorFrom(ctx))
		plan.Adjust(product.ID, initial)
		if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
			return err
		}

		var err error
		created, err = repos.Products.FindByID(ctx, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, slug string, patch ProductPatch) (*domain.Product, error) {
	var updated *domain.Product
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}

		if patch.CategorySet {
			product.CategoryID = patch.CategoryID
		}
		if patch.Name != nil {
			product.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			product.Description = *patch.Description
		}
		if patch.Price != nil {
			product.Price = *patch.Price
		}
		if patch.IsAvailable != nil {
			product.IsAvailable = *patch.IsAvailable
		}
		if patch.ImageURL != nil {
			product.ImageURL = *patch.ImageURL
		}
		if patch.Stock != nil {
			product.Stock = *patch.Stock
		}
		product.EnsureSlug()
		product.UpdatedAt = s.now().UTC()

		if err := validateProduct(product); err != nil {
			return err
		}
		if err := repos.Products.Update(ctx, product); err != nil {
			return err
		}

		if patch.Stock != nil {
			current, err := repos.Products.LockStock(ctx, []uuid.UUID{product.ID})
			if err != nil {
				return err
			}
			plan := stock.NewPlan(domain.ReasonManualAdjustment).By(ActorFrom(ctx))
			plan.Note = "stock set on product update"
			plan.Adjust(product.ID, *patch.Stock-current[product.ID])
			if _, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan); err != nil {
				return err
			}
		}

		updated, err = repos.Products.FindByID(ctx, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct refuses to remove products that line items still reference
func (s *catalogService) DeleteProduct(ctx context.Context, slug string) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}

		count, err := repos.Items.CountByProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return repository.ErrProductInUse
		}

		return repos.Products.Delete(ctx, product.ID)
	})
}

// AdjustStock applies a signed manual correction to a product's stock
func (s *catalogService) AdjustStock(ctx context.Context, slug string, delta int, note string) (*domain.Product, *domain.StockMovement, error) {
	switch {
	case delta == 0:
		return nil, nil, domain.NewValidationError("delta", "must not be zero")
	case delta > domain.MaxStock || delta < -domain.MaxStock:
		return nil, nil, domain.NewValidationError("delta", fmt.Sprintf("ensure the magnitude is no more than %d", domain.MaxStock))
	}

	var (
		product  *domain.Product
		movement *domain.StockMovement
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		p, err := repos.Products.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}

		plan := stock.NewPlan(domain.ReasonManualAdjustment).By(ActorFrom(ctx))
		plan.Note = note
		plan.Adjust(p.ID, delta)

		movements, err := s.engine.Commit(ctx, repos.Products, repos.Movements, plan)
		if err != nil {
			return err
		}
		if len(movements) != 1 {
			return errors.New("stock adjustment produced no movement")
		}
		movement = &movements[0]

		product, err = repos.Products.FindByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return product, movement, nil
}
