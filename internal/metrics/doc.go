// Package metrics collects circuit breaker observations into Prometheus
// counters.
//
// The collector receives breaker events over a buffered channel so the
// request path never blocks on metrics bookkeeping: breakers emit with
// non-blocking sends, and a dedicated goroutine applies the events to the
// registry. Under extreme load events may be dropped rather than slow down
// admission decisions.
//
// Exposed series:
//
//   - guard_errors_total{error_type, component, operation} — one increment
//     per failure recorded by a breaker. Successes are deliberately not
//     counted; success is the default, uninstrumented path.
//   - guard_state_changes_total{name, from_state, to_state} — one increment
//     per breaker state transition.
//   - guard_breaker_state{name} — current state gauge (0=closed,
//     1=half_open, 2=open).
//
// Example usage:
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	registry := circuitbreaker.NewRegistry(defaults, logger, collector)
//	mux.Handle("/metrics", collector.Handler())
package metrics
