// Package server exposes the service's HTTP surface: health, metrics and
// an authenticated order listing. Order creation has no HTTP route; orders
// enter exclusively through the queue.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/auth"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
)

// OrderLister is the read side of the order store.
type OrderLister interface {
	List(ctx context.Context, limit int) ([]model.PersistedOrder, error)
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// Server builds the HTTP handler.
type Server struct {
	orders    OrderLister
	healthy   HealthFunc
	jwtSecret string
	log       *slog.Logger
}

// New creates a Server. An empty jwtSecret leaves the order listing
// unprotected, which is only acceptable in local development.
func New(orders OrderLister, healthy HealthFunc, jwtSecret string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		orders:    orders,
		healthy:   healthy,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	var orders http.Handler = http.HandlerFunc(s.handleListOrders)
	if s.jwtSecret != "" {
		orders = auth.Middleware(s.jwtSecret, s.log)(orders)
	} else {
		s.log.Warn("jwt secret not configured, /orders is unprotected")
	}
	mux.Handle("/orders", orders)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthy != nil {
		if err := s.healthy(r.Context()); err != nil {
			s.log.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid limit"})
			return
		}
		limit = n
	}

	orders, err := s.orders.List(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
		return
	}
	if orders == nil {
		orders = []model.PersistedOrder{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
