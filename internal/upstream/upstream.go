// Package upstream models a named external dependency: the target URL, the
// reverse proxy used to reach it, and the circuit breaker guarding it.
package upstream

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
)

// Upstream is one guarded dependency.
type Upstream struct {
	name    string
	url     *url.URL
	proxy   *httputil.ReverseProxy
	breaker *circuitbreaker.CircuitBreaker
}

// New creates an upstream reached through a single-host reverse proxy.
// Transport-level proxy errors surface as 502 responses, which the guarded
// handler records as failures.
func New(name string, target *url.URL, breaker *circuitbreaker.CircuitBreaker) *Upstream {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
	}

	return &Upstream{
		name:    name,
		url:     target,
		proxy:   proxy,
		breaker: breaker,
	}
}

// Name returns the upstream's identity, which is also its breaker's name.
func (u *Upstream) Name() string {
	return u.name
}

// URL returns the upstream's base URL.
func (u *Upstream) URL() *url.URL {
	return u.url
}

// ReverseProxy returns the HTTP reverse proxy for this upstream.
func (u *Upstream) ReverseProxy() *httputil.ReverseProxy {
	return u.proxy
}

// Breaker returns the circuit breaker guarding this upstream.
func (u *Upstream) Breaker() *circuitbreaker.CircuitBreaker {
	return u.breaker
}
