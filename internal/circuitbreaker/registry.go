package circuitbreaker

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry is the process-wide mapping from dependency name to breaker.
// Call sites in different parts of the system that name the same logical
// dependency share one breaker instance. Breakers are created lazily and
// live for the duration of the process.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	defaults Config
	logger   *slog.Logger
	observer Observer
}

// NewRegistry creates a registry whose breakers are built from defaults
// unless a caller supplies its own config. The Name field of defaults is
// ignored; each breaker is named by its registry key.
func NewRegistry(defaults Config, logger *slog.Logger, observer Observer) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
		logger:   logger,
		observer: observer,
	}
}

// GetOrCreate returns the breaker for name, creating it on first request.
// Subsequent calls with the same name return the original instance and
// ignore any differing config argument.
func (r *Registry) GetOrCreate(name string, config ...Config) (*CircuitBreaker, error) {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb, nil
	}

	cfg := r.defaults
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg.Name = name

	cb, err := New(cfg, r.logger, r.observer)
	if err != nil {
		return nil, err
	}

	r.breakers[name] = cb
	return cb, nil
}

// Get returns the breaker for name if one exists.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, exists := r.breakers[name]
	return cb, exists
}

// Names returns the registered breaker names in sorted order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// States returns the current state of every registered breaker.
func (r *Registry) States() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		states[name] = cb.State()
	}
	return states
}

// Snapshots returns a point-in-time dump of every registered breaker,
// sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mutex.RLock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mutex.RUnlock()

	snaps := make([]Snapshot, 0, len(breakers))
	for _, cb := range breakers {
		snaps = append(snaps, cb.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps
}
