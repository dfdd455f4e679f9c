package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/models"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context, timeout time.Duration) error
}

// New creates a new mux router with the health and metrics routes
func New(db Pinger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheckHandler(db)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func healthCheckHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		alive := true
		if db != nil {
			if err := db.Ping(r.Context(), 2*time.Second); err != nil {
				zap.S().Warnw("health check failed", "error", err)
				alive = false
			}
		}
		if alive {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(models.HealthCheckResponse{Alive: alive})
	}
}
