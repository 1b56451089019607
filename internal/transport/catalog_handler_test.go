package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *testAPI) createProduct(t *testing.T, token, body string) ProductResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/products/", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product ProductResponse
	decodeBody(t, rec, &product)
	return product
}

func TestCategoryLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, "user")

	rec := api.do(t, http.MethodPost, "/api/categories/", `{"name":"Café Supplies"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/categories/", `{"name":"Café Supplies","description":"beans"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var category CategoryResponse
	decodeBody(t, rec, &category)
	assert.Equal(t, "cafe-supplies", category.Slug)

	rec = api.do(t, http.MethodPost, "/api/categories/", `{"name":"Café Supplies"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldErrors(t, rec), "name")

	rec = api.do(t, http.MethodPost, "/api/categories/", `{"description":"no name"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This field is required.", fieldErrors(t, rec)["name"])

	var listed []CategoryResponse
	rec = api.do(t, http.MethodGet, "/api/categories/?name=SUPPLIES", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listed)
	require.Len(t, listed, 1)

	rec = api.do(t, http.MethodPatch, "/api/categories/cafe-supplies", `{"name":"Coffee Gear"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &category)
	assert.Equal(t, "Coffee Gear", category.Name)
	assert.Equal(t, "cafe-supplies", category.Slug)
	assert.Equal(t, "beans", category.Description)

	rec = api.do(t, http.MethodPut, "/api/categories/cafe-supplies", `{"description":"only"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldErrors(t, rec), "name")

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/api/categories/cafe-supplies", "", token).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/categories/cafe-supplies", "", "").Code)
}

func TestProductEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, "user")

	rec := api.do(t, http.MethodPost, "/api/categories/", `{"name":"Tools"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var category CategoryResponse
	decodeBody(t, rec, &category)

	product := api.createProduct(t, token, mustJSON(map[string]interface{}{
		"category":    category.ID,
		"name":        "Hammer",
		"description": "claw",
		"price":       "12.5",
		"stock":       3,
	}))
	assert.Equal(t, "hammer", product.Slug)
	assert.Equal(t, "12.50", product.Price)
	assert.Equal(t, 3, product.Stock)
	assert.True(t, product.IsAvailable)
	require.NotNil(t, product.CategoryName)
	assert.Equal(t, "Tools", *product.CategoryName)
	assert.Nil(t, product.Image)

	t.Run("required and invalid fields", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/products/", `{"name":"Saw","description":"hand saw"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "price")

		rec = api.do(t, http.MethodPost, "/api/products/", `{"name":"Saw","description":"hand saw","price":"-1"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "price")

		rec = api.do(t, http.MethodPost, "/api/products/",
			`{"name":"Saw","description":"hand saw","price":"4","category":"`+"00000000-0000-0000-0000-000000000001"+`"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "category")
	})

	t.Run("filters", func(t *testing.T) {
		var listed []ProductResponse
		rec := api.do(t, http.MethodGet, "/api/products/?available=TRUE&category=tools", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &listed)
		assert.Len(t, listed, 1)

		rec = api.do(t, http.MethodGet, "/api/products/?available=yes", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &listed)
		assert.Empty(t, listed)

		rec = api.do(t, http.MethodGet, "/api/products/?min_price=abc", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "min_price")
	})

	t.Run("adjust stock", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/products/hammer/adjust-stock", `{"delta":-5}`, token)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Error struct {
				Details map[string]interface{} `json:"details"`
			} `json:"error"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, float64(5), body.Error.Details["requested"])
		assert.Equal(t, float64(3), body.Error.Details["available"])
		assert.Equal(t, product.ID.String(), body.Error.Details["product_id"])

		rec = api.do(t, http.MethodPost, "/api/products/hammer/adjust-stock", `{"delta":2,"reason":"recount"}`, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var adjusted AdjustStockResponse
		decodeBody(t, rec, &adjusted)
		assert.Equal(t, 5, adjusted.Product.Stock)
		assert.Equal(t, 2, adjusted.Movement.Delta)
		assert.Equal(t, 5, adjusted.Movement.StockAfter)
		assert.Equal(t, "recount", adjusted.Movement.Note)

		rec = api.do(t, http.MethodPost, "/api/products/hammer/adjust-stock", `{}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "delta")
	})

	t.Run("patch clears category", func(t *testing.T) {
		rec := api.do(t, http.MethodPatch, "/api/products/hammer", `{"category":null}`, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var patched ProductResponse
		decodeBody(t, rec, &patched)
		assert.Nil(t, patched.Category)
		assert.Nil(t, patched.CategoryName)
		assert.Equal(t, "12.50", patched.Price)
	})

	t.Run("put requires the full representation", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/products/hammer", `{"name":"Mallet"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fields := fieldErrors(t, rec)
		assert.Contains(t, fields, "description")
		assert.Contains(t, fields, "price")
	})
}

func TestDeleteProductReferencedByItems(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, "user")

	product := api.createProduct(t, token, `{"name":"Glue","description":"wood glue","price":"6","stock":5}`)
	rec := api.do(t, http.MethodPost, "/api/transactions/", mustJSON(map[string]interface{}{
		"transaction_type": "sale",
		"items":            []map[string]interface{}{{"product": product.ID, "quantity": 1, "unit_price": "6"}},
	}), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodDelete, "/api/products/glue", "", token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, "/api/products/missing", "", token).Code)
}
