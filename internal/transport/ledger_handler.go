package transport

import (
	"fmt"
	"net/http"
	"strings"

	"inventory-ledger/internal/domain"
	"inventory-ledger/internal/middleware"
	"inventory-ledger/internal/repository"
	"inventory-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerHandler handles HTTP requests for transactions and their items
type LedgerHandler struct {
	ledger service.LedgerService
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger service.LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger,
	}
}

// RegisterRoutes registers transaction and transaction item routes
func (h *LedgerHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/transactions", func(r chi.Router) {
		r.Get("/", h.ListTransactions)
		r.Get("/by_status", h.ListByStatus)
		r.Get("/by_type", h.ListByType)
		r.Get("/{id}", h.GetTransaction)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateTransaction)
			r.Put("/{id}", h.ReplaceTransaction)
			r.Patch("/{id}", h.PatchTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})
	})

	r.Route("/api/transaction-items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Get("/{id}", h.GetItem)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateItem)
			r.Put("/{id}", h.ReplaceItem)
			r.Patch("/{id}", h.PatchItem)
			r.Delete("/{id}", h.DeleteItem)
		})
	})
}

func (h *LedgerHandler) respondTransactions(w http.ResponseWriter, r *http.Request, filter domain.TransactionFilter) {
	txs, err := h.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, mapSlice(txs, newTransactionResponse))
}

func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.respondTransactions(w, r, filter)
}

// ListByStatus answers a missing parameter with a bare {"error": ...} body
// rather than the structured envelope
func (h *LedgerHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		middleware.RespondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Status parameter is required"})
		return
	}
	h.respondTransactions(w, r, domain.TransactionFilter{Status: domain.TransactionStatus(status)})
}

func (h *LedgerHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	txType := strings.TrimSpace(r.URL.Query().Get("type"))
	if txType == "" {
		middleware.RespondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Type parameter is required"})
		return
	}
	h.respondTransactions(w, r, domain.TransactionFilter{Type: domain.TransactionType(txType)})
}

func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, h.logger, repository.ErrTransactionNotFound)
		return
	}

	tx, err := h.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// itemInputs converts embedded items, reporting missing fields under
// items[i]
func itemInputs(items []ItemRequest, required *requiredFields) []service.ItemInput {
	out := make([]service.ItemInput, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("items[%d].", i)
		required.check(item.Product != nil, prefix+"product")
		required.check(item.UnitPrice != nil, prefix+"unit_price")
		out = append(out, toItemInput(item))
	}
	return out
}

func toItemInput(item ItemRequest) service.ItemInput {
	in := service.ItemInput{Quantity: 1, UnitPrice: decimal.Zero}
	if item.Product != nil {
		in.ProductID = *item.Product
	}
	if item.Quantity != nil {
		in.Quantity = *item.Quantity
	}
	if item.UnitPrice != nil {
		in.UnitPrice = *item.UnitPrice
	}
	return in
}

var itemsProductRef = fieldRef{err: repository.ErrProductNotFound, field: "items"}

func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	var required requiredFields
	required.check(req.TransactionType != nil, "transaction_type")
	in := service.TransactionInput{TotalAmount: decimal.Zero}
	if req.Items != nil {
		in.Items = itemInputs(*req.Items, &required)
	}
	if err := required.err(); err != nil {
		respondError(w, h.logger, err)
		return
	}

	in.TransactionType = domain.TransactionType(*req.TransactionType)
	if req.Status != nil {
		in.Status = domain.TransactionStatus(*req.Status)
	}
	if req.TotalAmount != nil {
		in.TotalAmount = *req.TotalAmount
	}
	if req.Notes != nil {
		in.Notes = *req.Notes
	}

	tx, err := h.ledger.CreateTransaction(r.Context(), in)
	if err != nil {
		respondError(w, h.logger, err, itemsProductRef)
		return
	}

	h.logger.Info("Transaction created",
		zap.String("transaction_id", tx.TransactionID),
		zap.String("type", string(tx.TransactionType)),
		zap.Int("items", len(tx.Items)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (h *LedgerHandler) ReplaceTransaction(w http.ResponseWriter, r *http.Request) {
	h.updateTransaction(w, r, true)
}

func (h *LedgerHandler) PatchTransaction(w http.ResponseWriter, r *http.Request) {
	h.updateTransaction(w, r, false)
}

// updateTransaction keeps the stored items unless the body carries items,
// for both PUT and PATCH
func (h *LedgerHandler) updateTransaction(w http.ResponseWriter, r *http.Request, full bool) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, h.logger, repository.ErrTransactionNotFound)
		return
	}

	var req TransactionRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	var (
		required requiredFields
		patch    service.TransactionPatch
	)
	if full {
		required.check(req.TransactionType != nil, "transaction_type")
	}
	if req.Items != nil {
		items := itemInputs(*req.Items, &required)
		patch.Items = &items
	}
	if err := required.err(); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if req.TransactionType != nil {
		t := domain.TransactionType(*req.TransactionType)
		patch.TransactionType = &t
	}
	if req.Status != nil {
		s := domain.TransactionStatus(*req.Status)
		patch.Status = &s
	}
	patch.TotalAmount = req.TotalAmount
	patch.Notes = req.Notes

	tx, err := h.ledger.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		respondError(w, h.logger, err, itemsProductRef)
		return
	}

	h.logger.Info("Transaction updated", zap.String("transaction_id", tx.TransactionID))
	middleware.RespondWithJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func (h *LedgerHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, h.logger, repository.ErrTransactionNotFound)
		return
	}

	if err := h.ledger.DeleteTransaction(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Transaction deleted", zap.String("id", id.String()))
	middleware.RespondNoContent(w)
}

func (h *LedgerHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	items, err := h.ledger.ListItems(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, mapSlice(items, newItemResponse))
}

func (h *LedgerHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, h.logger, repository.ErrTransactionItemNotFound)
		return
	}

	item, err := h.ledger.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newItemResponse(item))
}

var (
	itemTransactionRef = fieldRef{err: repository.ErrTransactionNotFound, field: "transaction"}
	itemProductRef     = fieldRef{err: repository.ErrProductNotFound, field: "product"}
)

func checkFullItem(req ItemRequest) error {
	var required requiredFields
	required.check(req.Transaction != nil, "transaction")
	required.check(req.Product != nil, "product")
	required.check(req.UnitPrice != nil, "unit_price")
	return required.err()
}

func (h *LedgerHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	if err := checkFullItem(req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	item, err := h.ledger.CreateItem(r.Context(), *req.Transaction, toItemInput(req))
	if err != nil {
		respondError(w, h.logger, err, itemTransactionRef, itemProductRef)
		return
	}

	h.logger.Info("Transaction item created",
		zap.String("item_id", item.ID.String()),
		zap.Int("quantity", item.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newItemResponse(item))
}

func (h *LedgerHandler) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	h.updateItem(w, r, true)
}

func (h *LedgerHandler) PatchItem(w http.ResponseWriter, r *http.Request) {
	h.updateItem(w, r, false)
}

func (h *LedgerHandler) updateItem(w http.ResponseWriter, r *http.Request, full bool) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, h.logger, repository.ErrTransactionItemNotFound)
		return
	}

	var req ItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	if full {
		if err := checkFullItem(req); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}

	item, err := h.ledger.UpdateItem(r.Context(), id, service.ItemPatch{
		TransactionID: req.Transaction,
		ProductID:     req.Product,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
	})
	if err != nil {
		respondError(w, h.logger, err, itemProductRef)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newItemResponse(item))
}

func (h *LedgerHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, h.logger, repository.ErrTransactionItemNotFound)
		return
	}

	if err := h.ledger.DeleteItem(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Transaction item deleted", zap.String("item_id", id.String()))
	middleware.RespondNoContent(w)
}
