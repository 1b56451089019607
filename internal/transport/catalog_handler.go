package transport

import (
	"net/http"

	"inventory-ledger/internal/middleware"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var categoryRef = fieldRef{err: repository.ErrCategoryNotFound, field: "category"}

// CatalogHandler handles HTTP requests for categories and products
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers category and product routes. Reads are public,
// writes go through authMiddleware.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{slug}", h.GetCategory)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateCategory)
			r.Put("/{slug}", h.ReplaceCategory)
			r.Patch("/{slug}", h.PatchCategory)
			r.Delete("/{slug}", h.DeleteCategory)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{slug}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateProduct)
			r.Put("/{slug}", h.ReplaceProduct)
			r.Patch("/{slug}", h.PatchProduct)
			r.Delete("/{slug}", h.DeleteProduct)
			r.Post("/{slug}/adjust-stock", h.AdjustStock)
		})
	})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCategoryFilter(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	categories, err := h.catalog.ListCategories(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, mapSlice(categories, newCategoryResponse))
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	var required requiredFields
	required.check(req.Name != nil, "name")
	if err := required.err(); err != nil {
		respondError(w, h.logger, err)
		return
	}

	in := service.CategoryInput{Name: *req.Name}
	if req.Description != nil {
		in.Description = *req.Description
	}

	category, err := h.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Category created", zap.String("slug", category.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, newCategoryResponse(category))
}

func (h *CatalogHandler) ReplaceCategory(w http.ResponseWriter, r *http.Request) {
	h.updateCategory(w, r, true)
}

func (h *CatalogHandler) PatchCategory(w http.ResponseWriter, r *http.Request) {
	h.updateCategory(w, r, false)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request, full bool) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	if full {
		var required requiredFields
		required.check(req.Name != nil, "name")
		if err := required.err(); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	category, err := h.catalog.UpdateCategory(r.Context(), chi.URLParam(r, "slug"), service.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCategoryResponse(category))
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.catalog.DeleteCategory(r.Context(), slug); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Category deleted", zap.String("slug", slug))
	middleware.RespondNoContent(w)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, mapSlice(products, newProductResponse))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func checkFullProduct(req ProductRequest) error {
	var required requiredFields
	required.check(req.Name != nil, "name")
	required.check(req.Description != nil, "description")
	required.check(req.Price != nil, "price")
	return required.err()
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	if err := checkFullProduct(req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	in := service.ProductInput{
		CategoryID:  req.Category.Value,
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		IsAvailable: req.IsAvailable,
	}
	if req.Stock != nil {
		in.Stock = *req.Stock
	}
	if req.Image != nil {
		in.ImageURL = *req.Image
	}

	product, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, err, categoryRef)
		return
	}

	h.logger.Info("Product created", zap.String("slug", product.Slug), zap.Int("stock", product.Stock))
	middleware.RespondWithJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *CatalogHandler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	h.updateProduct(w, r, true)
}

func (h *CatalogHandler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	h.updateProduct(w, r, false)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request, full bool) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	if full {
		if err := checkFullProduct(req); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	product, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "slug"), service.ProductPatch{
		CategorySet: req.Category.Set,
		CategoryID:  req.Category.Value,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		IsAvailable: req.IsAvailable,
		ImageURL:    req.Image,
	})
	if err != nil {
		respondError(w, h.logger, err, categoryRef)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.catalog.DeleteProduct(r.Context(), slug); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("slug", slug))
	middleware.RespondNoContent(w)
}

// AdjustStockResponse returns the product after the adjustment together with
// the journal row it produced
type AdjustStockResponse struct {
	Product  ProductResponse  `json:"product"`
	Movement MovementResponse `json:"movement"`
}

func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, movement, err := h.catalog.AdjustStock(r.Context(), chi.URLParam(r, "slug"), *req.Delta, req.Reason)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Stock adjusted",
		zap.String("slug", product.Slug),
		zap.Int("delta", movement.Delta),
		zap.Int("stock", product.Stock),
	)
	middleware.RespondWithJSON(w, http.StatusOK, AdjustStockResponse{
		Product:  newProductResponse(product),
		Movement: newMovementResponse(movement),
	})
}
