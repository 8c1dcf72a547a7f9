package main

import (
	"encoding/json"
	"net/http"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
	"github.com/fwdguard/circuit-guard/internal/handler"
	"github.com/fwdguard/circuit-guard/internal/health"
	"github.com/fwdguard/circuit-guard/internal/metrics"
)

func setupRouter(guardedHandler *handler.GuardedHandler, collector *metrics.Collector, registry *circuitbreaker.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle(handler.Prefix, guardedHandler)
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/healthz", health.Handler(registry))
	mux.HandleFunc("/breakers", breakersHandler(registry))

	return mux
}

// breakersHandler dumps a point-in-time snapshot of every breaker as JSON.
func breakersHandler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(registry.Snapshots()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
