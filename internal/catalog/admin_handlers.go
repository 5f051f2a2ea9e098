package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/money"
)

// AdminHandler exposes staff catalog management endpoints.
type AdminHandler struct {
	Admin *Admin
}

type ingredientPayload struct {
	Name      string      `json:"name" validate:"required,max=80"`
	Price     money.Money `json:"price"`
	Category  string      `json:"category" validate:"required,oneof=base cheese meat vegetable sauce extra"`
	ImageURL  string      `json:"imageUrl" validate:"omitempty,url"`
	Available *bool       `json:"available"`
}

type pizzaPayload struct {
	Name        string      `json:"name" validate:"required,max=80"`
	Description string      `json:"description" validate:"max=500"`
	BasePrice   money.Money `json:"basePrice"`
	ImageURL    string      `json:"imageUrl" validate:"omitempty,url"`
	Category    string      `json:"category" validate:"max=40"`
	Ingredients []string    `json:"ingredients" validate:"dive,required"`
	Popular     bool        `json:"popular"`
	Available   *bool       `json:"available"`
}

type drinkPayload struct {
	Name        string      `json:"name" validate:"required,max=80"`
	Description string      `json:"description" validate:"max=500"`
	Price       money.Money `json:"price"`
	ImageURL    string      `json:"imageUrl" validate:"omitempty,url"`
	Size        string      `json:"size" validate:"required,max=20"`
	Available   *bool       `json:"available"`
}

// PutIngredient handles PUT /admin/catalog/ingredients/{id}.
func (h *AdminHandler) PutIngredient(w http.ResponseWriter, r *http.Request) {
	var p ingredientPayload
	if err := common.DecodeJSON(r, &p); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Admin.SaveIngredient(r.Context(), Ingredient{
		ID:        itemID(r),
		Name:      strings.TrimSpace(p.Name),
		Price:     p.Price,
		Category:  IngredientCategory(p.Category),
		ImageURL:  p.ImageURL,
		Available: availableOrDefault(p.Available),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// PutPizza handles PUT /admin/catalog/pizzas/{id}.
func (h *AdminHandler) PutPizza(w http.ResponseWriter, r *http.Request) {
	var p pizzaPayload
	if err := common.DecodeJSON(r, &p); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Admin.SavePizza(r.Context(), Pizza{
		ID:          itemID(r),
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		BasePrice:   p.BasePrice,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Ingredients: p.Ingredients,
		Popular:     p.Popular,
		Available:   availableOrDefault(p.Available),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// PutDrink handles PUT /admin/catalog/drinks/{id}.
func (h *AdminHandler) PutDrink(w http.ResponseWriter, r *http.Request) {
	var p drinkPayload
	if err := common.DecodeJSON(r, &p); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Admin.SaveDrink(r.Context(), Drink{
		ID:          itemID(r),
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Size:        p.Size,
		Available:   availableOrDefault(p.Available),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Delete handles DELETE /admin/catalog/{kind}/{id}.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind := ItemKind(chi.URLParam(r, "kind"))
	if err := h.Admin.Withdraw(r.Context(), kind, itemID(r)); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func itemID(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(chi.URLParam(r, "id")))
}

func availableOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
