package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
)

// Watch periodically probes every breaker in the registry and logs level
// changes. It returns when ctx is cancelled. The watcher only observes;
// it never mutates breaker state.
func Watch(
	ctx context.Context,
	registry *circuitbreaker.Registry,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := make(map[string]circuitbreaker.HealthLevel)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health watcher stopped")
			return

		case <-ticker.C:
			for _, name := range registry.Names() {
				cb, ok := registry.Get(name)
				if !ok {
					continue
				}

				h := cb.Health()
				prev, seen := last[name]
				if seen && prev == h.Level {
					continue
				}
				last[name] = h.Level

				if h.Level == circuitbreaker.LevelHealthy {
					if seen {
						logger.Info("Dependency recovered",
							slog.String("breaker", name),
							slog.String("state", h.State))
					}
					continue
				}

				logger.Warn("Dependency health changed",
					slog.String("breaker", name),
					slog.String("level", string(h.Level)),
					slog.String("state", h.State),
					slog.Int("failures", h.FailureCount),
					slog.Int("successes", h.SuccessCount))
			}
		}
	}
}
