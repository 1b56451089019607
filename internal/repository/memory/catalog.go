package memory

import (
	"context"
	"sort"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/repository"

	"github.com/google/uuid"
)

type categoryRepository struct{ access }

func (r *categoryRepository) conflict(st *state, c *domain.Category) error {
	for id, existing := range st.categories {
		if id == c.ID {
			continue
		}
		if existing.Name == c.Name {
			return repository.ErrCategoryAlreadyExists
		}
		if existing.Slug == c.Slug {
			return repository.ErrSlugTaken
		}
	}
	return nil
}

func (r *categoryRepository) Create(_ context.Context, c *domain.Category) error {
	return r.write(func(st *state) error {
		if err := r.conflict(st, c); err != nil {
			return err
		}
		st.categories[c.ID] = *c
		return nil
	})
}

func (r *categoryRepository) Update(_ context.Context, c *domain.Category) error {
	return r.write(func(st *state) error {
		existing, ok := st.categories[c.ID]
		if !ok {
			return repository.ErrCategoryNotFound
		}
		if err := r.conflict(st, c); err != nil {
			return err
		}
		c.CreatedAt = existing.CreatedAt
		st.categories[c.ID] = *c
		return nil
	})
}

func (r *categoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return repository.ErrCategoryNotFound
		}
		delete(st.categories, id)
		for pid, p := range st.products {
			if p.CategoryID != nil && *p.CategoryID == id {
				p.CategoryID = nil
				st.products[pid] = p
			}
		}
		return nil
	})
}

func (r *categoryRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	var out *domain.Category
	err := r.read(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return repository.ErrCategoryNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *categoryRepository) FindBySlug(_ context.Context, slug string) (*domain.Category, error) {
	var out *domain.Category
	err := r.read(func(st *state) error {
		for _, c := range st.categories {
			if c.Slug == slug {
				c := c
				out = &c
				return nil
			}
		}
		return repository.ErrCategoryNotFound
	})
	return out, err
}

func (r *categoryRepository) List(_ context.Context, filter domain.CategoryFilter) ([]*domain.Category, error) {
	out := []*domain.Category{}
	err := r.read(func(st *state) error {
		for _, c := range st.categories {
			c := c
			if filter.Matches(&c) {
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, err
}

type productRepository struct{ access }

// decorate fills the category fields that postgres gets from its join
func decorate(st *state, p domain.Product) *domain.Product {
	p.CategoryName, p.CategorySlug = "", ""
	if p.CategoryID != nil {
		if c, ok := st.categories[*p.CategoryID]; ok {
			p.CategoryName, p.CategorySlug = c.Name, c.Slug
		}
	}
	return &p
}

func (r *productRepository) check(st *state, p *domain.Product) error {
	if p.CategoryID != nil {
		if _, ok := st.categories[*p.CategoryID]; !ok {
			return repository.ErrCategoryNotFound
		}
	}
	for id, existing := range st.products {
		if id != p.ID && existing.Slug == p.Slug {
			return repository.ErrSlugTaken
		}
	}
	return nil
}

func (r *productRepository) Create(_ context.Context, p *domain.Product) error {
	return r.write(func(st *state) error {
		if err := r.check(st, p); err != nil {
			return err
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) Update(_ context.Context, p *domain.Product) error {
	return r.write(func(st *state) error {
		existing, ok := st.products[p.ID]
		if !ok {
			return repository.ErrProductNotFound
		}
		if err := r.check(st, p); err != nil {
			return err
		}
		p.Stock = existing.Stock
		p.CreatedAt = existing.CreatedAt
		st.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return repository.ErrProductNotFound
		}
		for _, item := range st.items {
			if item.ProductID == id {
				return repository.ErrProductInUse
			}
		}
		delete(st.products, id)
		return nil
	})
}

func (r *productRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	var out *domain.Product
	err := r.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		out = decorate(st, p)
		return nil
	})
	return out, err
}

func (r *productRepository) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	var out *domain.Product
	err := r.read(func(st *state) error {
		for _, p := range st.products {
			if p.Slug == slug {
				out = decorate(st, p)
				return nil
			}
		}
		return repository.ErrProductNotFound
	})
	return out, err
}

func (r *productRepository) List(_ context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	out := []*domain.Product{}
	err := r.read(func(st *state) error {
		for _, p := range st.products {
			candidate := decorate(st, p)
			if filter.Matches(candidate) {
				out = append(out, candidate)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, err
}

func (r *productRepository) LockStock(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	stock := make(map[uuid.UUID]int, len(ids))
	err := r.read(func(st *state) error {
		for _, id := range ids {
			p, ok := st.products[id]
			if !ok {
				return repository.ErrProductNotFound
			}
			stock[id] = p.Stock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

func (r *productRepository) SetStock(_ context.Context, id uuid.UUID, qty int) error {
	return r.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		p.Stock = qty
		st.products[id] = p
		return nil
	})
}
