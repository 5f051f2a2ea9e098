package tracking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/obs"
	"github.com/noah-isme/backend-pizza/internal/order"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature"

type replayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// StatusUpdater applies validated status transitions.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, next order.Status, now time.Time) (order.Order, error)
}

// Webhook handles courier callbacks and moves orders through delivery.
type Webhook struct {
	Orders    StatusUpdater
	Events    order.Emitter
	Replay    replayStore
	ReplayTTL time.Duration
	// Secret enables signature checks when set.
	Secret string
	Logger zerolog.Logger
	Now    func() time.Time
}

type webhookPayload struct {
	OrderID        string     `json:"orderId"`
	ExternalStatus string     `json:"externalStatus"`
	Location       *string    `json:"location"`
	OccurredAt     *time.Time `json:"occurredAt"`
}

// Handle processes POST /webhooks/couriers/{courier}.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil || h.Replay == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "tracking webhook not configured", nil)
		return
	}
	ctx, span := otel.Tracer("tracking.Webhook").Start(r.Context(), "TrackingWebhook.Handle")
	defer span.End()

	courier := normaliseLabel(chi.URLParam(r, "courier"))
	span.SetAttributes(attribute.String("tracking.courier", courier))
	outcome := "error"
	defer func() { obs.ObserveTrackingWebhook(courier, outcome) }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		span.RecordError(err)
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read payload", nil)
		return
	}
	if h.Secret != "" && !validSignature(h.Secret, body, r.Header.Get(SignatureHeader)) {
		outcome = "unauthorized"
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature mismatch", nil)
		return
	}

	key := fmt.Sprintf("trkwh:%s:%s", courier, sha256Hex(body))
	ok, err := h.Replay.SetNX(ctx, key, "1", h.ReplayTTL).Result()
	if err != nil {
		span.RecordError(err)
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "replay protection failed", nil)
		return
	}
	if !ok {
		outcome = "replay"
		span.AddEvent("tracking webhook replay prevented")
		common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook payload", nil)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || strings.TrimSpace(payload.OrderID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
		return
	}
	status, known := MapExternalToStatus(payload.ExternalStatus)
	if !known {
		outcome = "ignored"
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unrecognised external status", nil)
		return
	}
	span.SetAttributes(attribute.String("tracking.order_id", payload.OrderID), attribute.String("tracking.status", string(status)))

	at := h.now()
	if payload.OccurredAt != nil {
		at = *payload.OccurredAt
	}
	o, err := h.Orders.UpdateStatus(ctx, payload.OrderID, status, at)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, order.ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, order.ErrInvalidTransition):
			outcome = "rejected"
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
		default:
			span.SetStatus(codes.Error, "update status")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to record delivery update", nil)
		}
		return
	}

	if h.Events != nil {
		topic, data := order.StatusEvent(o)
		data["courier"] = courier
		if payload.Location != nil {
			data["location"] = *payload.Location
		}
		if _, err := h.Events.Emit(ctx, topic, o.ID, data); err != nil {
			h.Logger.Warn().Err(err).Str("order_id", o.ID).Msg("tracking_event_failed")
		}
	}
	outcome = "success"
	w.WriteHeader(http.StatusNoContent)
}

func (h Webhook) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Sign returns the signature a courier sends for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, got string) bool {
	want := Sign(secret, body)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(got))))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func normaliseLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
