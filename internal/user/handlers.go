package user

import (
	"net/http"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/delivery"
)

// Handler exposes the profile of the authenticated user.
type Handler struct {
	Service *Service
}

type profileRequest struct {
	DisplayName *string             `json:"displayName" validate:"omitempty,max=120"`
	PhotoURL    *string             `json:"photoUrl" validate:"omitempty,url"`
	PhoneNumber *string             `json:"phoneNumber" validate:"omitempty,max=32"`
	Addresses   *[]delivery.Address `json:"addresses" validate:"omitempty,max=10,dive"`
}

// Get handles GET /api/v1/me/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "profile service not configured", nil)
		return
	}
	who, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	p, err := h.Service.Get(r.Context(), who)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Update handles PUT /api/v1/me/profile.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "profile service not configured", nil)
		return
	}
	who, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	var req profileRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Service.Update(r.Context(), who, Update{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		PhoneNumber: req.PhoneNumber,
		Addresses:   req.Addresses,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}
