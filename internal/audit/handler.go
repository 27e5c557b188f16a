package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Handler serves the audit trail.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit-log", h.list)
}

type listResponse struct {
	Items []shared.AuditLog `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Entity: q.Get("entity"), Action: q.Get("action")}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.ActorID, _ = strconv.ParseInt(q.Get("actor_id"), 10, 64)
	filter.normalize()

	logs, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list audit log failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: logs, Total: total, Page: filter.Page, Limit: filter.Limit})
}
