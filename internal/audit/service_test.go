package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/obs"
)

type stubStore struct {
	last   Entry
	called bool
}

func (s *stubStore) Insert(_ context.Context, e Entry) error {
	s.called = true
	s.last = e
	return nil
}

func (s *stubStore) List(context.Context, int, int) ([]Entry, error) { return nil, nil }

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := Service{Store: store, Enabled: true, SamplingRate: 1, Now: func() time.Time { return now }}

	req := httptest.NewRequest(http.MethodPatch, "https://api.test/api/v1/orders/abc/status?notify=1", nil)
	req.Header.Set("User-Agent", "tester")
	req.Header.Set("X-Request-Id", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := common.WithIdentity(req.Context(), common.Identity{UserID: "admin-1", Role: "admin"})
	ctx = obs.WithRoutePattern(ctx, "/api/v1/orders/{id}/status")
	req = req.WithContext(ctx)

	if err := svc.Record(req.Context(), Actor{Kind: ActorKindUser, UserID: "admin-1"}, "", "", "abc", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be called")
	}
	got := store.last
	if got.ActorKind != ActorKindUser || got.ActorUserID != "admin-1" {
		t.Fatalf("unexpected actor: %s/%s", got.ActorKind, got.ActorUserID)
	}
	if got.Action != "PATCH /api/v1/orders/{id}/status" {
		t.Fatalf("unexpected action: %s", got.Action)
	}
	if got.ResourceType != "orders.{id}.status" {
		t.Fatalf("unexpected resource type: %s", got.ResourceType)
	}
	if got.ResourceID != "abc" {
		t.Fatalf("unexpected resource id: %s", got.ResourceID)
	}
	if got.IP != "10.0.0.2" {
		t.Fatalf("expected ip capture, got %q", got.IP)
	}
	if got.RequestID != "req-123" {
		t.Fatalf("expected request id, got %q", got.RequestID)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected timestamp: %s", got.CreatedAt)
	}
	var meta map[string]string
	if err := json.Unmarshal(got.Metadata, &meta); err != nil {
		t.Fatalf("metadata json: %v", err)
	}
	if meta["query"] != "notify=1" {
		t.Fatalf("unexpected metadata query: %s", meta["query"])
	}
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := svc.Record(req.Context(), Actor{}, "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.called {
		t.Fatal("expected no insert when disabled")
	}
}

func TestUnknownActorIsAnonymous(t *testing.T) {
	if normalizeActorKind("robot") != ActorKindAnonymous {
		t.Fatal("expected anonymous actor")
	}
}

func TestMiddlewareRecordsStatusAndParam(t *testing.T) {
	store := &stubStore{}
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true}}

	r := chi.NewRouter()
	r.With(rec.Middleware(HTTPConfig{
		Action:          "order.status",
		ResourceType:    "order",
		ResourceIDParam: "id",
		MetadataFunc: func(_ *http.Request, status int) map[string]any {
			return map[string]any{"status": status}
		},
	})).Patch("/orders/{id}/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPatch, "/orders/o-9/status", nil)
	req = req.WithContext(common.WithIdentity(req.Context(), common.Identity{UserID: "admin-1", Role: "admin"}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	got := store.last
	if got.Action != "order.status" || got.ResourceType != "order" || got.ResourceID != "o-9" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.Status != http.StatusConflict {
		t.Fatalf("expected recorded status 409, got %d", got.Status)
	}
	if got.ActorUserID != "admin-1" || got.ActorKind != ActorKindAdmin {
		t.Fatalf("expected admin actor from identity, got %s/%q", got.ActorKind, got.ActorUserID)
	}
	if got.Route != "/orders/{id}/status" {
		t.Fatalf("expected chi route pattern, got %q", got.Route)
	}
}
