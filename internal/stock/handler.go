package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the stock module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Post("/adjust", h.adjust)
		r.Get("/low", h.lowStock)
		r.Get("/movements", h.movements)
		r.Get("/{productID}", h.productStock)
	})
}

type adjustRequest struct {
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	LocationID int64  `json:"location_id" validate:"required,gt=0"`
	Delta      *int64 `json:"delta,omitempty"`
	Set        *int64 `json:"set,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type productStockResponse struct {
	ProductID int64   `json:"product_id"`
	Total     int64   `json:"total"`
	Entries   []Entry `json:"entries"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.ProductID <= 0 || req.LocationID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id and location_id are required")
		return
	}
	if (req.Delta == nil) == (req.Set == nil) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "exactly one of delta or set is required")
		return
	}

	var entry Entry
	var err error
	if req.Set != nil {
		entry, err = h.service.Set(r.Context(), req.ProductID, req.LocationID, *req.Set, actorID(r))
	} else {
		movementType := MovementAdjustment
		if req.Reason != "" {
			movementType = MovementType(req.Reason)
		}
		entry, err = h.service.Adjust(r.Context(), AdjustInput{
			ProductID:  req.ProductID,
			LocationID: req.LocationID,
			Delta:      *req.Delta,
			Type:       movementType,
			ActorID:    actorID(r),
		})
	}
	if err != nil {
		h.logger.Error("stock adjust failed", slog.Any("error", err),
			slog.Int64("product_id", req.ProductID), slog.Int64("location_id", req.LocationID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) productStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	entries, err := h.service.Entries(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	httpx.JSON(w, http.StatusOK, productStockResponse{ProductID: productID, Total: total, Entries: entries})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{Type: MovementType(q.Get("type"))}
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
			return
		}
		filter.ProductID = id
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	low, err := h.service.LowStockProducts(r.Context())
	if err != nil {
		h.logger.Error("low stock scan failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, low)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
