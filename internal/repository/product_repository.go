package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-ledger/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInUse    = errors.New("product is referenced by transaction items")
)

// ProductRepository defines the interface for product data access.
// Update never touches stock; stock only moves through SetStock after the
// row has been locked with LockStock.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	LockStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productSelect = `
	SELECT p.id, p.category_id, COALESCE(c.name, ''), COALESCE(c.slug, ''), p.name, p.slug,
	       p.description, p.price, p.stock, p.is_available, p.image_url, p.created_at, p.updated_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
`

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.CategoryName,
		&product.CategorySlug,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.IsAvailable,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}

func productWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err, "products_slug_key"):
		return ErrSlugTaken
	case isForeignKeyViolation(err):
		return ErrCategoryNotFound
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}

// Create inserts a new product using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, category_id, name, slug, description, price, stock, is_available, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.Stock,
		product.IsAvailable,
		product.ImageURL,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return productWriteError("create", err)
	}

	return nil
}

// Update updates the descriptive fields of a product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET category_id = $2, name = $3, slug = $4, description = $5, price = $6,
		    is_available = $7, image_url = $8, updated_at = $9
		WHERE id = $1
		RETURNING stock, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.IsAvailable,
		product.ImageURL,
		product.UpdatedAt,
	).Scan(&product.Stock, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return productWriteError("update", err)
	}

	return nil
}

// Delete removes a product. Products still referenced by line items are
// protected by the ON DELETE RESTRICT foreign key.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a product by slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// List retrieves products matching every filter that is set, newest first
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	where := &whereBuilder{}
	if filter.CategorySlug != "" {
		where.add("c.slug = %[1]s", filter.CategorySlug)
	}
	if filter.Name != "" {
		where.add("p.name ILIKE %[1]s", likePattern(filter.Name))
	}
	if filter.Search != "" {
		where.add("(p.name ILIKE %[1]s OR p.description ILIKE %[1]s)", likePattern(filter.Search))
	}
	if filter.MinPrice != nil {
		where.add("p.price >= %[1]s", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where.add("p.price <= %[1]s", *filter.MaxPrice)
	}
	if filter.Available != nil {
		where.add("p.is_available = %[1]s", *filter.Available)
	}

	rows, err := r.db.QueryContext(ctx, productSelect+where.String()+` ORDER BY p.created_at DESC, p.id`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// LockStock takes row locks on the given products in ascending id order and
// returns their current stock. Missing products yield ErrProductNotFound.
func (r *productRepository) LockStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	stock := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stock
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`, params)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan product stock: %w", err)
		}
		stock[id] = qty
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product stock: %w", err)
	}

	if len(stock) != len(ids) {
		return nil, ErrProductNotFound
	}

	return stock, nil
}

// SetStock writes the stock of a product previously locked with LockStock
func (r *productRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, id, stock)
	if err != nil {
		return fmt.Errorf("failed to set product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
