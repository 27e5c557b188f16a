package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the sales module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Post("/full", h.finalize)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/details", h.details)
	})
}

type listResponse struct {
	Items []Sale `json:"items"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	idemKey := r.Header.Get("Idempotency-Key")

	details, err := h.service.Finalize(r.Context(), req, idemKey, actorID(r))
	if err != nil {
		h.logger.Warn("sale finalization failed", slog.Any("error", err), slog.Int("lines", len(req.Lines)))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale committed",
		slog.Int64("sale_id", details.Sale.ID),
		slog.String("reference", details.Sale.Reference.String()),
		slog.String("total", details.Sale.Total.String()))
	httpx.JSON(w, http.StatusCreated, details)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	sales, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: sales, Total: total, Page: filter.Page, Limit: filter.Limit})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) details(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	details, err := h.service.Details(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errors.New("invalid client_id")
		}
		filter.ClientID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, err
			}
			*dst = &t
		}
	}
	filter.Normalize()
	return filter, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
