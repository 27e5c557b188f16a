package pricing

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler serves the price history endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the pricing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers pricing routes. Mounted under /products to keep the
// history next to the product it belongs to.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/{id}/price-history", h.history)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	changes, err := h.service.History(r.Context(), productID, SortDir(r.URL.Query().Get("dir")))
	if err != nil {
		h.logger.Error("price history failed", slog.Any("error", err), slog.Int64("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, changes)
}
