// Package health aggregates circuit breaker health into a pull-based probe.
// The overall level is the worst level among all registered breakers:
// unhealthy if any breaker is open, degraded if any is half_open, healthy
// otherwise. A background watcher logs per-breaker level changes.
package health
