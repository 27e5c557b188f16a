package stats

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler serves the statistics endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the stats handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers statistics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-summary", h.summary)
	r.Get("/sales-today", h.today)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	filter := SummaryFilter{}
	q := r.URL.Query()
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", param+" must be RFC 3339")
				return
			}
			*dst = &t
		}
	}
	summary, err := h.service.SalesSummary(r.Context(), filter)
	if err != nil {
		h.logger.Error("sales summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	var day time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	breakdown, err := h.service.SalesToday(r.Context(), day)
	if err != nil {
		h.logger.Error("sales today failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}
