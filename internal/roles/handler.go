package roles

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler serves the role/screen mapping.
type Handler struct{}

// NewHandler constructs the roles handler.
func NewHandler() *Handler {
	return &Handler{}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.list)
	r.Get("/roles/{role}/screens", h.screens)
}

type screensResponse struct {
	Role    Role     `json:"role"`
	Screens []Screen `json:"screens"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, All())
}

func (h *Handler) screens(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	screens, err := ScreensFor(role)
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role")
		return
	}
	httpx.JSON(w, http.StatusOK, screensResponse{Role: role, Screens: screens})
}
