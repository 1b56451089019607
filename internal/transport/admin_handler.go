package transport

import (
	"net/http"

	"inventory-ledger/internal/middleware"
	"inventory-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the stock movement journal to admins
type AdminHandler struct {
	ledger service.LedgerService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(ledger service.LedgerService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{ledger: ledger, logger: logger}
}

// RegisterRoutes mounts admin routes behind authentication and the admin role
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))
		r.Get("/stock-movements", h.ListMovements)
	})
}

func (h *AdminHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMovementFilter(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	movements, err := h.ledger.ListMovements(r.Context(), filter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, mapSlice(movements, newMovementResponse))
}
