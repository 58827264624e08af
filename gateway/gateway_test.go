package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/cleanshop/pkg/catalog"
	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/order"
	"github.com/example/cleanshop/pkg/repository"
	"github.com/example/cleanshop/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	handler  http.Handler
	store    *repository.MemoryRecordStore
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryRecordStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Insert(context.Background(), repository.TableProducts,
		repository.Record{"id": "p1", "name": "Dish Soap", "price": "25", "discount": 0, "category": "kitchen", "is_active": true, "created_at": base},
		repository.Record{"id": "p2", "name": "Bathroom Cleaner", "price": "35", "discount": 0, "category": "bathroom", "is_active": true, "created_at": base.Add(time.Hour)},
		repository.Record{"id": "p3", "name": "Glass Spray", "price": "40", "discount": 25, "category": "kitchen", "is_active": true, "created_at": base.Add(2 * time.Hour)},
	)
	require.NoError(t, err)

	cfg := &config.Config{
		Handoff: config.HandoffConfig{
			Domain:      "wa.me",
			Recipient:   "201113397879",
			StoreName:   "متجر المنظفات",
			Timezone:    "UTC",
			RedirectURL: "/",
		},
	}
	logger := zap.NewNop()
	sessions := session.NewManager(nil, time.Hour, logger)

	gw := NewGateway(cfg, logger, Services{
		Catalog:  catalog.NewService(store, nil, logger),
		Sessions: sessions,
		Workflow: order.NewWorkflow(store, nil, &cfg.Handoff, logger),
		Orders:   order.NewOrders(store, nil, logger),
	})
	gw.SetupRoutes()

	return &testEnv{handler: gw.Handler(), store: store, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, sessionID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["total"])

	w, body = env.do(t, http.MethodGet, "/api/v1/products?category=kitchen&q=glass", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total"])
	products := body["products"].([]interface{})
	assert.Equal(t, "p3", products[0].(map[string]interface{})["id"])
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p1"})
	require.Equal(t, http.StatusOK, w.Code)
	sid := w.Header().Get(SessionHeader)
	require.NotEmpty(t, sid)

	env.do(t, http.MethodPost, "/api/v1/cart/items", sid, map[string]string{"product_id": "p1"})
	w, body := env.do(t, http.MethodPost, "/api/v1/cart/items", sid, map[string]string{"product_id": "p3"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sid, w.Header().Get(SessionHeader))
	assert.EqualValues(t, 3, body["total_items"])
	assert.Equal(t, "80", body["total_price"])
	assert.Len(t, body["items"], 2)

	w, body = env.do(t, http.MethodPut, "/api/v1/cart/items/p1", sid, map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6, body["total_items"])

	w, _ = env.do(t, http.MethodPut, "/api/v1/cart/items/p1", sid, map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = env.do(t, http.MethodPut, "/api/v1/cart/items/p1", sid, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodDelete, "/api/v1/cart/items/p3", sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, body["total_items"])

	w, body = env.do(t, http.MethodDelete, "/api/v1/cart", sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["total_items"])
	assert.Equal(t, "0", body["total_price"])
}

func TestAddUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p1"})
	sid := w.Header().Get(SessionHeader)
	env.do(t, http.MethodPost, "/api/v1/cart/items", sid, map[string]string{"product_id": "p1"})
	env.do(t, http.MethodPost, "/api/v1/cart/items", sid, map[string]string{"product_id": "p2"})

	w, body := env.do(t, http.MethodPost, "/api/v1/checkout", sid, map[string]string{
		"customer_name": "Ali", "customer_phone": "12345", "customer_address": "Cairo",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, body["problems"], 1)
	assert.Zero(t, env.store.Count(repository.TableOrders))

	w, body = env.do(t, http.MethodPost, "/api/v1/checkout", sid, map[string]string{
		"customer_name": "Ali", "customer_phone": "0123456789", "customer_address": "Cairo",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "85", body["total"])
	assert.Equal(t, "/", body["next"])
	assert.Contains(t, body["deep_link"], "https://wa.me/201113397879?text=")
	orderID := body["order_id"].(string)

	_, body = env.do(t, http.MethodGet, "/api/v1/cart", sid, nil)
	assert.EqualValues(t, 0, body["total_items"])

	w, body = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "85", body["total_amount"])
	assert.Equal(t, order.StatusPending, body["status"])
	assert.Len(t, body["items"], 2)

	w, _ = env.do(t, http.MethodPut, "/api/v1/orders/"+orderID+"/status", "", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodPut, "/api/v1/orders/"+orderID+"/status", "", map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/v1/orders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, http.MethodPost, "/api/v1/checkout", "", map[string]string{
		"customer_name": "Ali", "customer_phone": "0123456789", "customer_address": "Cairo",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "السلة فارغة", body["error"])
}

func TestCheckout_InFlight(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/cart/items", "", map[string]string{"product_id": "p1"})
	sid := w.Header().Get(SessionHeader)

	s, err := env.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	require.True(t, s.BeginSubmit())

	w, _ = env.do(t, http.MethodPost, "/api/v1/checkout", sid, map[string]string{
		"customer_name": "Ali", "customer_phone": "0123456789", "customer_address": "Cairo",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, env.store.Count(repository.TableOrders))
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/v1/profile", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["logged_in"])
	sid := w.Header().Get(SessionHeader)

	underage := time.Now().AddDate(-10, 0, 0).Format("2006-01-02")
	w, _ = env.do(t, http.MethodPut, "/api/v1/profile", sid, map[string]string{
		"name": "Ali", "phone": "0123456789", "address": "Cairo", "birth_date": underage,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = env.do(t, http.MethodPut, "/api/v1/profile", sid, map[string]string{
		"name": "Ali", "phone": "0123456789", "address": "Cairo", "birth_date": "1990-05-01",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["logged_in"])

	_, body = env.do(t, http.MethodGet, "/api/v1/profile", sid, nil)
	assert.Equal(t, "Ali", body["profile"].(map[string]interface{})["name"])

	w, body = env.do(t, http.MethodDelete, "/api/v1/profile", sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["logged_in"])
}

func TestOrderAudit_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodGet, "/api/v1/orders/o-1/audit", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
