// Package handler implements the guarded proxy handler. It routes requests
// to named upstreams, runs each forwarded call under the upstream's circuit
// breaker, and translates breaker refusals into 503 responses with a
// Retry-After hint.
package handler
