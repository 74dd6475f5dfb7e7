// Package poolhttp exposes a manager's health as a conventional
// readiness endpoint.
package poolhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/goforj/datapool"
)

// probeTimeout bounds the connectivity probe behind /health.
const probeTimeout = 2 * time.Second

// degradedThreshold separates "ok" from "degraded" on a reachable backend.
const degradedThreshold = 50

// Response is the health endpoint payload.
type Response struct {
	Status          string            `json:"status"`
	Score           int               `json:"score"`
	Snapshot        datapool.Snapshot `json:"snapshot"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Handler serves GET /health: a trivial connectivity probe decides the
// HTTP status, and the body carries the derived score, counters, and
// recommendations so monitoring can tell "slow" from "down".
func Handler(m *datapool.Manager) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler(m)).Methods(http.MethodGet)
	return router
}

func healthHandler(m *datapool.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Probe first: on a cold manager this builds the pool, so the
		// snapshot below reflects the state callers will actually see.
		probeCtx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		probeErr := probe(probeCtx, m)

		resp := Response{
			Score:           m.Score(),
			Snapshot:        m.Health(),
			Recommendations: m.Recommendations(),
		}

		status := http.StatusOK
		switch {
		case probeErr != nil:
			resp.Status = "unhealthy"
			resp.Error = probeErr.Error()
			status = http.StatusServiceUnavailable
		case resp.Score < degradedThreshold:
			resp.Status = "degraded"
		default:
			resp.Status = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func probe(ctx context.Context, m *datapool.Manager) error {
	conn, err := m.AcquireWithRetryPolicy(ctx, 1, 0)
	if err != nil {
		return err
	}
	defer m.Release(conn)
	return conn.Ping(ctx)
}
