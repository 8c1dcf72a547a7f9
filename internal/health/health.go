package health

import (
	"encoding/json"
	"net/http"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
)

// Response is the aggregated probe body.
type Response struct {
	Status   circuitbreaker.HealthLevel       `json:"status"`
	Breakers map[string]circuitbreaker.Health `json:"breakers"`
}

// Evaluate probes every breaker in the registry and rolls the levels up
// into an overall status. Probing has no side effects, so repeated
// evaluations with no breaker activity return identical responses.
func Evaluate(registry *circuitbreaker.Registry) Response {
	resp := Response{
		Status:   circuitbreaker.LevelHealthy,
		Breakers: make(map[string]circuitbreaker.Health),
	}

	for _, name := range registry.Names() {
		cb, ok := registry.Get(name)
		if !ok {
			continue
		}

		h := cb.Health()
		resp.Breakers[name] = h
		if severity(h.Level) > severity(resp.Status) {
			resp.Status = h.Level
		}
	}

	return resp
}

// Handler serves the aggregated probe as JSON. It answers 503 while any
// breaker is open and 200 otherwise (degraded still counts as serving).
func Handler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := Evaluate(registry)

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == circuitbreaker.LevelUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func severity(level circuitbreaker.HealthLevel) int {
	switch level {
	case circuitbreaker.LevelUnhealthy:
		return 2
	case circuitbreaker.LevelDegraded:
		return 1
	default:
		return 0
	}
}
