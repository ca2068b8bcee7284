package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
)

// Readiness tracks whether the gateway connection is up. The bot flips it
// on ready and off on disconnect; /readyz reflects it.
type Readiness struct {
	ready atomic.Bool
}

// SetReady marks the service ready or not
func (r *Readiness) SetReady(v bool) {
	r.ready.Store(v)
}

// Ready reports the current state
func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// NewRouter builds the ops router: liveness and readiness probes
func NewRouter(readiness *Readiness) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyHandler(readiness)).Methods(http.MethodGet)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func readyHandler(readiness *Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if readiness.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"connecting"}`))
	}
}
