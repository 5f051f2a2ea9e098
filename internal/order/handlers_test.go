package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/events"
	"github.com/noah-isme/backend-pizza/internal/order"
)

type handlerEnv struct {
	router http.Handler
	repo   *order.MemoryRepository
	events *events.MemoryStore
}

func newHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()
	repo := order.NewMemoryRepository()
	store := &events.MemoryStore{}
	h := order.NewHandler(order.HandlerConfig{
		Repository: repo,
		Events:     &events.Bus{Store: store},
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return fixedNow.Add(time.Hour) },
	})
	r := chi.NewRouter()
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/admin/orders/{id}/status", h.PatchStatus)
	return handlerEnv{router: r, repo: repo, events: store}
}

func seedOrder(t *testing.T, repo *order.MemoryRepository, who common.Identity, at time.Time) order.Order {
	t.Helper()
	o, err := order.Assemble(snapshot(t, "4.50"), &home, who, at)
	require.NoError(t, err)
	o, err = o.AttachPayment(order.PaymentInfo{Provider: "mock", TransactionID: "tx", Amount: o.Total, Status: "captured", PaidAt: at})
	require.NoError(t, err)
	o, err = repo.Create(context.Background(), o)
	require.NoError(t, err)
	return o
}

func call(t *testing.T, h http.Handler, who *common.Identity, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if who != nil {
		req = req.WithContext(common.WithIdentity(req.Context(), *who))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestListOrdersNewestFirst(t *testing.T) {
	env := newHandlerEnv(t)
	older := seedOrder(t, env.repo, alice, fixedNow)
	newer := seedOrder(t, env.repo, alice, fixedNow.Add(time.Minute))
	seedOrder(t, env.repo, common.Identity{UserID: "user-2"}, fixedNow)

	rr := call(t, env.router, &alice, http.MethodGet, "/orders?limit=1&page=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data       []order.Order     `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, older.ID, body.Data[0].ID)
	require.Equal(t, 2, body.Pagination.Total)

	rr = call(t, env.router, &alice, http.MethodGet, "/orders", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, newer.ID, body.Data[0].ID)
	require.Len(t, body.Data[0].Lines, 2)

	rr = call(t, env.router, nil, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetOrderHidesOtherUsers(t *testing.T) {
	env := newHandlerEnv(t)
	o := seedOrder(t, env.repo, alice, fixedNow)

	rr := call(t, env.router, &alice, http.MethodGet, "/orders/"+o.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	bob := common.Identity{UserID: "user-2"}
	rr = call(t, env.router, &bob, http.MethodGet, "/orders/"+o.ID, "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	admin := common.Identity{UserID: "admin-1", Role: "admin"}
	rr = call(t, env.router, &admin, http.MethodGet, "/orders/"+o.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestPatchStatusEmitsEvents(t *testing.T) {
	env := newHandlerEnv(t)
	o := seedOrder(t, env.repo, alice, fixedNow)
	path := "/admin/orders/" + o.ID + "/status"

	rr := call(t, env.router, nil, http.MethodPatch, path, `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	got, err := env.repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPreparing, got.Status)
	require.Equal(t, fixedNow.Add(time.Hour), got.UpdatedAt)

	rr = call(t, env.router, nil, http.MethodPatch, path, `{"status":"paid"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = call(t, env.router, nil, http.MethodPatch, path, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	evs := env.events.Events()
	require.Len(t, evs, 2)
	require.Equal(t, events.TopicOrderStatusChanged, evs[0].Topic)
	require.Equal(t, events.TopicOrderCancelled, evs[1].Topic)
	require.Equal(t, o.ID, evs[1].AggregateID)
}

func TestPatchStatusRejectsBadInput(t *testing.T) {
	env := newHandlerEnv(t)
	o := seedOrder(t, env.repo, alice, fixedNow)

	rr := call(t, env.router, nil, http.MethodPatch, "/admin/orders/"+o.ID+"/status", `{"status":"pending"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(t, env.router, nil, http.MethodPatch, "/admin/orders/"+o.ID+"/status", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = call(t, env.router, nil, http.MethodPatch, "/admin/orders/missing/status", `{"status":"ready"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Empty(t, env.events.Events())
}
