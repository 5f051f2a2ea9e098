package order

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/events"
)

// Emitter records domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Handler exposes customer and admin order endpoints.
type Handler struct {
	repo   Repository
	events Emitter
	logger zerolog.Logger
	now    func() time.Time
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Repository Repository
	Events     Emitter
	Logger     zerolog.Logger
	Now        func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{repo: cfg.Repository, events: cfg.Events, logger: cfg.Logger, now: now}
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	win := common.ParseWindow(r, 20, 100)
	rows, total, err := h.repo.ListByUser(r.Context(), who.UserID, win.Limit, win.Offset)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", who.UserID).Msg("order_list_failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": common.Pagination{Limit: win.Limit, Offset: win.Offset, Total: total},
	})
}

// Get handles GET /api/v1/orders/{id}. Orders of other users read as missing
// unless the caller is an admin.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	who, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	o, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && o.UserID != who.UserID && !who.IsAdmin() {
		err = ErrNotFound
	}
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type patchStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PatchStatus handles PATCH /api/v1/orders/{id}/status (admin).
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req patchStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	target := Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !target.Valid() || target == StatusPending {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	o, err := h.repo.UpdateStatus(r.Context(), chi.URLParam(r, "id"), target, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	h.emitStatus(r.Context(), o)
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) emitStatus(ctx context.Context, o Order) {
	if h.events == nil {
		return
	}
	topic, payload := StatusEvent(o)
	if _, err := h.events.Emit(ctx, topic, o.ID, payload); err != nil {
		h.logger.Warn().Err(err).Str("order_id", o.ID).Str("topic", topic).Msg("order_event_failed")
	}
}

// StatusEvent returns the topic and payload announcing the current status of o.
func StatusEvent(o Order) (string, map[string]any) {
	topic := events.TopicOrderStatusChanged
	if o.Status == StatusCancelled {
		topic = events.TopicOrderCancelled
	}
	return topic, map[string]any{"orderId": o.ID, "userId": o.UserID, "email": o.UserEmail, "status": o.Status}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
