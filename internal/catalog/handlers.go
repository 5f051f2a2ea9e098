package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-pizza/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Sizes handles GET /api/v1/catalog/sizes.
func (h *Handler) Sizes(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": StandardSizes()})
}

// Ingredients handles GET /api/v1/catalog/ingredients?category=.
func (h *Handler) Ingredients(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	category := IngredientCategory(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category"))))
	rows, err := h.service.Ingredients(r.Context(), category)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Pizzas handles GET /api/v1/catalog/pizzas?popular=.
func (h *Handler) Pizzas(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	popular := false
	if v := strings.TrimSpace(r.URL.Query().Get("popular")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			common.WriteError(w, badRequest("popular", "popular must be true or false", err))
			return
		}
		popular = parsed
	}
	rows, err := h.service.Pizzas(r.Context(), popular)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Drinks handles GET /api/v1/catalog/drinks.
func (h *Handler) Drinks(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	rows, err := h.service.Drinks(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
