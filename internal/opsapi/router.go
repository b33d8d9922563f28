// Package opsapi serves the operator endpoints: liveness, Prometheus metrics
// and aggregate ledger statistics.
package opsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// StatsSource reports aggregate counters.
type StatsSource interface {
	Stats(ctx context.Context) (*model.Stats, error)
}

type handler struct {
	healthy func() bool
	stats   StatsSource
}

// NewRouter builds the ops router. healthy is polled on every /healthz call.
func NewRouter(healthy func() bool, stats StatsSource) *mux.Router {
	h := &handler{healthy: healthy, stats: stats}
	root := mux.NewRouter()
	root.Use(Recover)
	root.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	root.HandleFunc("/stats", h.statsHandler).Methods(http.MethodGet)
	root.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return root
}

// health answers 200 while the service is healthy and 503 otherwise.
func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	status, code := "healthy", http.StatusOK
	if !h.healthy() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	WriteJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Stats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, st)
}
