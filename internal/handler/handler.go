package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
	"github.com/fwdguard/circuit-guard/internal/upstream"
)

// Prefix is the path prefix under which upstreams are reachable:
// Prefix + "<name>/rest" forwards "/rest" to the upstream called "name".
const Prefix = "/u/"

type GuardedHandler struct {
	logger    *slog.Logger
	upstreams map[string]*upstream.Upstream
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps the underlying writer's streaming support visible through the
// recorder so the reverse proxy can forward flushed upstream responses.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func NewGuardedHandler(logger *slog.Logger, upstreams []*upstream.Upstream) *GuardedHandler {
	byName := make(map[string]*upstream.Upstream, len(upstreams))
	for _, up := range upstreams {
		byName[up.Name()] = up
	}

	return &GuardedHandler{
		logger:    logger,
		upstreams: byName,
	}
}

func (h *GuardedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	name, rest := splitTarget(strings.TrimPrefix(r.URL.Path, Prefix))
	if name == "" {
		http.Error(w, "upstream name required", http.StatusNotFound)
		return
	}

	up, ok := h.upstreams[name]
	if !ok {
		h.logger.Warn("Unknown upstream requested",
			slog.String("from", clientIP),
			slog.String("upstream", name))
		http.Error(w, "unknown upstream", http.StatusNotFound)
		return
	}

	h.logger.Info("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("upstream", name),
		slog.String("path", rest))

	breaker := up.Breaker()
	rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

	err := breaker.Do(r.Context(), func(ctx context.Context) error {
		proxied := r.Clone(ctx)
		proxied.URL.Path = rest

		up.ReverseProxy().ServeHTTP(rec, proxied)

		if rec.statusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream %s responded with status %d", name, rec.statusCode)
		}
		return nil
	})

	var open *circuitbreaker.OpenError
	if errors.As(err, &open) {
		retryAfter := int(breaker.RetryDelay(0).Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

		h.logger.Warn("Refusing call to upstream",
			slog.String("from", clientIP),
			slog.String("upstream", name),
			slog.String("state", open.State.String()))
		http.Error(w, "upstream temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	if err != nil {
		// The proxy already wrote the failing response; the breaker has
		// recorded the outcome.
		h.logger.Warn("Upstream call failed",
			slog.String("upstream", name),
			slog.String("error", err.Error()))
	}
}

// splitTarget separates the upstream name from the path to forward.
func splitTarget(target string) (name, rest string) {
	name, rest, found := strings.Cut(target, "/")
	if !found || rest == "" {
		return name, "/"
	}
	return name, "/" + rest
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
