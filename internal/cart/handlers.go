package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/money"
	"github.com/noah-isme/backend-pizza/internal/pricing"
)

// CatalogReader resolves catalog items referenced by cart requests.
type CatalogReader interface {
	Pizza(ctx context.Context, id string) (catalog.Pizza, error)
	Drink(ctx context.Context, id string) (catalog.Drink, error)
	Ingredient(ctx context.Context, id string) (catalog.Ingredient, error)
}

// DeliveryQuoter prices a delivery to an address.
type DeliveryQuoter interface {
	Quote(ctx context.Context, addr delivery.Address) (delivery.Quote, error)
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Registry *Registry
	Catalog  CatalogReader
	Quoter   DeliveryQuoter
	Rules    pricing.Rules
}

// Handler wires cart sessions to HTTP.
type Handler struct {
	registry *Registry
	catalog  CatalogReader
	quoter   DeliveryQuoter
	rules    pricing.Rules
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{registry: cfg.Registry, catalog: cfg.Catalog, quoter: cfg.Quoter, rules: cfg.Rules}
}

type addPizzaRequest struct {
	PizzaID  string `json:"pizzaId" validate:"required"`
	SizeID   string `json:"sizeId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=99"`
}

type addDrinkRequest struct {
	DrinkID  string `json:"drinkId" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=99"`
}

type customPizzaRequest struct {
	SizeID     string   `json:"sizeId"`
	BaseID     string   `json:"baseId"`
	CheeseID   string   `json:"cheeseId"`
	SauceID    string   `json:"sauceId"`
	ToppingIDs []string `json:"toppingIds" validate:"dive,required"`
	Quantity   int      `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type deliveryRequest struct {
	Address delivery.Address `json:"address"`
}

// Create handles POST /api/v1/carts and issues a new session id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	var snap Snapshot
	err := h.registry.With(r.Context(), id, func(s *Store) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"session": id, "cart": snap}})
}

// Get handles GET /api/v1/carts/{session}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, func(context.Context, *Store) error { return nil })
}

// AddPizza handles POST /api/v1/carts/{session}/pizzas.
func (h *Handler) AddPizza(w http.ResponseWriter, r *http.Request) {
	var req addPizzaRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	size, ok := catalog.SizeByID(req.SizeID)
	if !ok {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown size", map[string]string{"sizeId": req.SizeID})
		return
	}
	pizza, err := h.catalog.Pizza(r.Context(), req.PizzaID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	line, err := NewPizzaLine(pizza, size, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error { return s.Add(ctx, line) })
}

// AddCustomPizza handles POST /api/v1/carts/{session}/custom-pizzas.
func (h *Handler) AddCustomPizza(w http.ResponseWriter, r *http.Request) {
	var req customPizzaRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	spec, err := h.buildCustom(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	line, err := NewCustomPizzaLine(spec, h.rules, qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error { return s.Add(ctx, line) })
}

// AddDrink handles POST /api/v1/carts/{session}/drinks.
func (h *Handler) AddDrink(w http.ResponseWriter, r *http.Request) {
	var req addDrinkRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	drink, err := h.catalog.Drink(r.Context(), req.DrinkID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	line, err := NewDrinkLine(drink, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error { return s.Add(ctx, line) })
}

// UpdateLine handles PATCH /api/v1/carts/{session}/lines/{lineID}. A
// quantity of zero or less removes the line; unknown lines are ignored.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	lineID := chi.URLParam(r, "lineID")
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error {
		s.UpdateQuantity(ctx, lineID, *req.Quantity)
		return nil
	})
}

// RemoveLine handles DELETE /api/v1/carts/{session}/lines/{lineID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error {
		s.Remove(ctx, lineID)
		return nil
	})
}

// Clear handles DELETE /api/v1/carts/{session}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error {
		s.Clear(ctx)
		return nil
	})
}

// SetDelivery handles PUT /api/v1/carts/{session}/delivery. The address is
// resolved and priced first; the cart is only touched when both succeed.
func (h *Handler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	if h.quoter == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery quoter not configured", nil)
		return
	}
	var req deliveryRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.quoter.Quote(r.Context(), req.Address)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, func(ctx context.Context, s *Store) error {
		s.SetDeliveryAddress(ctx, &quote.Address)
		return s.SetDeliveryFee(ctx, quote.Fee)
	})
}

// PreviewCustom handles POST /api/v1/pricing/custom. It validates and prices
// a custom pizza without touching any cart.
func (h *Handler) PreviewCustom(w http.ResponseWriter, r *http.Request) {
	var req customPizzaRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	spec, err := h.buildCustom(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res := h.rules.Validate(spec)
	body := map[string]any{
		"valid":       res.Valid,
		"errors":      res.Errors,
		"description": pricing.Describe(spec),
		"price":       nil,
	}
	if price, err := pricing.CustomPizzaPrice(spec); err == nil {
		body["price"] = money.Format(price)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": body})
}

// buildCustom resolves the referenced ingredients. Missing selections are
// left empty for validation to report.
func (h *Handler) buildCustom(ctx context.Context, req customPizzaRequest) (pricing.CustomPizza, error) {
	var spec pricing.CustomPizza
	if req.SizeID != "" {
		size, ok := catalog.SizeByID(req.SizeID)
		if !ok {
			return spec, invalidField("sizeId", "unknown size")
		}
		spec.SetSize(size)
	}
	pick := func(field, id string, want catalog.IngredientCategory) (*catalog.Ingredient, error) {
		if strings.TrimSpace(id) == "" {
			return nil, nil
		}
		ing, err := h.catalog.Ingredient(ctx, id)
		if err != nil {
			return nil, err
		}
		if want != "" && ing.Category != want {
			return nil, invalidField(field, "ingredient "+id+" is not a "+string(want))
		}
		return &ing, nil
	}
	base, err := pick("baseId", req.BaseID, catalog.CategoryBase)
	if err != nil {
		return spec, err
	}
	if base != nil {
		spec.SetBase(*base)
	}
	cheese, err := pick("cheeseId", req.CheeseID, catalog.CategoryCheese)
	if err != nil {
		return spec, err
	}
	spec.SetCheese(cheese)
	sauce, err := pick("sauceId", req.SauceID, catalog.CategorySauce)
	if err != nil {
		return spec, err
	}
	spec.SetSauce(sauce)
	for _, id := range req.ToppingIDs {
		topping, err := pick("toppingIds", id, "")
		if err != nil {
			return spec, err
		}
		if topping != nil {
			spec.AddTopping(*topping)
		}
	}
	return spec, nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context, *Store) error) {
	sessionID := chi.URLParam(r, "session")
	if _, err := uuid.Parse(sessionID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart session", nil)
		return
	}
	var snap Snapshot
	err := h.registry.With(r.Context(), sessionID, func(s *Store) error {
		if err := fn(r.Context(), s); err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, status, map[string]any{"data": snap})
}

func invalidField(field, message string) error {
	return common.InvalidField(field, message)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var customErr *InvalidCustomPizzaError
	switch {
	case common.IsAppError(err):
		common.WriteError(w, err)
	case errors.As(err, &customErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CUSTOM_PIZZA", "custom pizza is incomplete", customErr.Errors)
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidLine), errors.Is(err, ErrNegativeFee):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrInvalidSession):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart session", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "catalog item not found", nil)
	case errors.Is(err, delivery.ErrUnresolvedAddress):
		common.JSONError(w, http.StatusUnprocessableEntity, "ADDRESS_UNRESOLVED", "could not resolve address", nil)
	case errors.Is(err, delivery.ErrOutsideRadius):
		common.JSONError(w, http.StatusUnprocessableEntity, "OUTSIDE_DELIVERY_RADIUS", "address is outside the delivery radius", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process cart", nil)
	}
}
