package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
)

type fakeLister struct {
	orders []model.PersistedOrder
	err    error
	gotLim int
}

func (f *fakeLister) List(_ context.Context, limit int) ([]model.PersistedOrder, error) {
	f.gotLim = limit
	return f.orders, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := New(&fakeLister{}, func(context.Context) error { return nil }, "", testLogger())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealthz_Unhealthy(t *testing.T) {
	t.Parallel()

	srv := New(&fakeLister{}, func(context.Context) error { return errors.New("db down") }, "", testLogger())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListOrders(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{orders: []model.PersistedOrder{
		{ID: "id-1", User: "alice", TotalPrice: 8},
	}}
	srv := New(lister, nil, "", testLogger())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if lister.gotLim != 5 {
		t.Errorf("limit = %d, want 5", lister.gotLim)
	}
	var got []model.PersistedOrder
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got) != 1 || got[0].User != "alice" {
		t.Fatalf("body = %+v", got)
	}
}

func TestListOrders_InvalidLimit(t *testing.T) {
	t.Parallel()

	srv := New(&fakeLister{}, nil, "", testLogger())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?limit=-1", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListOrders_RequiresToken(t *testing.T) {
	t.Parallel()

	srv := New(&fakeLister{}, nil, "secret", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	srv := New(&fakeLister{}, nil, "", testLogger())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
