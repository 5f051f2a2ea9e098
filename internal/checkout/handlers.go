package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pizza/internal/cart"
	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/lock"
	"github.com/noah-isme/backend-pizza/internal/order"
	"github.com/noah-isme/backend-pizza/internal/payment"
	"github.com/noah-isme/backend-pizza/internal/resilience"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc *Service
}

type checkoutRequest struct {
	Method string        `json:"method" validate:"omitempty,oneof=mock card"`
	Card   *payment.Card `json:"card" validate:"required_if=Method card"`
}

// Checkout handles POST /api/v1/carts/{session}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	who, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	sessionID := chi.URLParam(r, "session")
	if _, err := uuid.Parse(sessionID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart session", nil)
		return
	}
	var req checkoutRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Svc.Place(r.Context(), who, Input{SessionID: sessionID, Method: req.Method, Card: req.Card})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cannot checkout empty cart", nil)
	case errors.Is(err, order.ErrMissingAddress):
		common.JSONError(w, http.StatusUnprocessableEntity, "MISSING_ADDRESS", "missing delivery address", nil)
	case errors.Is(err, order.ErrMissingIdentity):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	case errors.Is(err, ErrUnsupportedMethod):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNSUPPORTED_PAYMENT_METHOD", err.Error(), nil)
	case errors.Is(err, payment.ErrDeclined):
		common.JSONError(w, http.StatusPaymentRequired, "PAYMENT_DECLINED", err.Error(), nil)
	case errors.Is(err, resilience.ErrOpenCircuit):
		common.JSONError(w, http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE", "payment provider unavailable", nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "another checkout is in progress", nil)
	case errors.Is(err, ErrPersistOrder):
		common.JSONError(w, http.StatusBadGateway, "ORDER_NOT_SAVED", "order could not be saved, payment will be refunded", nil)
	case errors.Is(err, cart.ErrInvalidSession):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart session", nil)
	default:
		common.WriteError(w, err)
	}
}
