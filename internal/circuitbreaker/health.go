package circuitbreaker

import "time"

// HealthLevel is the coarse health of a guarded dependency as seen through
// its breaker.
type HealthLevel string

const (
	LevelHealthy   HealthLevel = "healthy"   // closed: calls flow normally
	LevelDegraded  HealthLevel = "degraded"  // half_open: recovery being probed
	LevelUnhealthy HealthLevel = "unhealthy" // open: calls are refused
)

// Health is the pull-based probe consumed by health-check aggregators.
// All fields are point-in-time values safe to serialize to JSON.
type Health struct {
	Level           HealthLevel `json:"level"`
	State           string      `json:"state"`
	FailureCount    int         `json:"failure_count"`
	SuccessCount    int         `json:"success_count,omitempty"`
	LastFailureTime *time.Time  `json:"last_failure_time,omitempty"`
}

// Health reports the breaker's current health level: unhealthy while open,
// degraded while half_open, healthy while closed. Probing has no side
// effects; repeated probes with no intervening activity return the same
// report.
func (cb *CircuitBreaker) Health() Health {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	h := Health{State: cb.state.String()}

	switch cb.state {
	case StateOpen:
		h.Level = LevelUnhealthy
		h.FailureCount = cb.failures
		if !cb.lastFailureTime.IsZero() {
			t := cb.lastFailureTime
			h.LastFailureTime = &t
		}

	case StateHalfOpen:
		h.Level = LevelDegraded
		h.SuccessCount = cb.successes

	default:
		h.Level = LevelHealthy
		h.FailureCount = cb.failures
	}

	return h
}
