package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Handler wires HTTP endpoints for the catalog module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Flat patterns so the pricing module can hang its history route off
	// the same /products subtree.
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deactivateProduct)
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Delete("/{id}", h.deleteCategory)
	})
	r.Route("/providers", func(r chi.Router) {
		r.Get("/", h.listProviders)
		r.Post("/", h.createProvider)
		r.Get("/{id}", h.getProvider)
		r.Put("/{id}", h.updateProvider)
		r.Delete("/{id}", h.deactivateProvider)
	})
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filters := parseListFilters(r)
	products, total, err := h.service.ListProducts(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[Product]{Items: products, Total: total, Page: filters.Page, Limit: filters.Limit})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	product, err := h.service.CreateProduct(r.Context(), req, actorID(r))
	if err != nil {
		h.logger.Error("create product failed", slog.Any("error", err), slog.String("sku", req.SKU))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, req, actorID(r))
	if err != nil {
		h.logger.Error("update product failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateProduct(r.Context(), id, actorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	category, err := h.service.CreateCategory(r.Context(), req, actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id, actorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	filters := parseListFilters(r)
	providers, total, err := h.service.ListProviders(r.Context(), filters)
	if err != nil {
		h.logger.Error("list providers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if providers == nil {
		providers = []Provider{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[Provider]{Items: providers, Total: total, Page: filters.Page, Limit: filters.Limit})
}

func (h *Handler) createProvider(w http.ResponseWriter, r *http.Request) {
	var req CreateProviderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	provider, err := h.service.CreateProvider(r.Context(), req, actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, provider)
}

func (h *Handler) getProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	provider, err := h.service.GetProvider(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, provider)
}

func (h *Handler) updateProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateProviderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	provider, err := h.service.UpdateProvider(r.Context(), id, req, actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, provider)
}

func (h *Handler) deactivateProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateProvider(r.Context(), id, actorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func parseListFilters(r *http.Request) shared.ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if v := q.Get("category_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.CategoryID = &id
		}
	}
	if v := q.Get("is_active"); v != "" {
		isActive := v == "true"
		filters.IsActive = &isActive
	}
	filters.Normalize()
	return filters
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

// actorID reads the acting user from the X-Actor-ID header. Zero when absent;
// authentication enforcement is out of scope, the id is recorded for audit only.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
