package circuitbreaker

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// CircuitBreaker tracks consecutive failures of one named dependency and
// decides whether calls to it may proceed. All state is guarded by a single
// mutex; the lock is held only for the in-memory bookkeeping, never across
// the guarded call itself.
type CircuitBreaker struct {
	mutex           sync.Mutex
	config          Config
	state           State
	failures        int
	successes       int
	halfOpenCalls   int
	lastFailureTime time.Time
	lastFailure     error
	now             func() time.Time
	logger          *slog.Logger
	observer        Observer
}

// New creates a circuit breaker in the closed state.
// The configuration is validated and immutable afterwards.
func New(config Config, logger *slog.Logger, observer Observer) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver{}
	}

	cb := &CircuitBreaker{
		config:   config,
		state:    StateClosed,
		now:      time.Now,
		logger:   logger,
		observer: observer,
	}

	logger.Info("Circuit breaker created",
		slog.String("name", config.Name),
		slog.Int("failure_threshold", config.FailureThreshold),
		slog.Int("success_threshold", config.SuccessThreshold),
		slog.Duration("reset_timeout", config.ResetTimeout),
		slog.Int("half_open_max_calls", config.HalfOpenMaxCalls))

	return cb, nil
}

// Allow reports whether a call may proceed. Every admitted call must be
// matched by exactly one RecordSuccess or RecordFailure.
//
// While open, the first check after ResetTimeout has elapsed moves the
// breaker to half_open and is admitted as the recovery probe. While
// half_open, at most HalfOpenMaxCalls further trial calls are admitted per
// episode; excess callers fail fast instead of piling onto a possibly
// still-broken dependency.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.config.ResetTimeout {
			cb.transition(StateHalfOpen)
			return true
		}
		return false

	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false

	default:
		return true
	}
}

// RecordSuccess reports that an admitted call completed normally.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transition(StateClosed)
		}

	case StateClosed:
		// A success clears any partial failure streak.
		cb.failures = 0
	}
	// Open admits no calls, so a stray success there is a no-op.
}

// RecordFailure reports that an admitted call failed with the given cause.
// A single failure during a half-open trial reopens the breaker; recovery
// gets no partial credit.
func (cb *CircuitBreaker) RecordFailure(cause error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()
	cb.lastFailure = cause

	cb.observer.FailureRecorded(cb.config.Name)

	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)

	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	}
}

// transition moves the breaker to next and resets the counters that become
// meaningless in the new state. Callers must hold the mutex.
func (cb *CircuitBreaker) transition(next State) {
	prev := cb.state
	if prev == next {
		return
	}
	cb.state = next

	switch next {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
		cb.halfOpenCalls = 0
		cb.lastFailure = nil

	case StateHalfOpen:
		cb.successes = 0
		cb.halfOpenCalls = 0

	case StateOpen:
		// A reopened breaker gets no credit for trial successes.
		cb.successes = 0
	}

	cb.logger.Info("Circuit breaker state changed",
		slog.String("name", cb.config.Name),
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
		slog.Int("failures", cb.failures),
		slog.Int("successes", cb.successes))

	cb.observer.StateChanged(cb.config.Name, prev, next)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Name returns the breaker's identity.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Config returns the breaker's immutable policy.
func (cb *CircuitBreaker) Config() Config {
	return cb.config
}

// RetryDelay suggests how long a caller's retry loop should wait before the
// given zero-indexed attempt: min(ExponentialBase^attempt seconds,
// MaxRetryDelay). It is a pure function of the configuration and does not
// depend on breaker state; the breaker never retries on its own.
func (cb *CircuitBreaker) RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	seconds := math.Pow(cb.config.ExponentialBase, float64(attempt))
	if seconds >= cb.config.MaxRetryDelay.Seconds() {
		return cb.config.MaxRetryDelay
	}

	return time.Duration(seconds * float64(time.Second))
}

// Snapshot is a point-in-time, read-only dump of breaker state for
// diagnostics and dashboards. It is not a resumable checkpoint.
type Snapshot struct {
	Name            string     `json:"name"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	HalfOpenCalls   int        `json:"half_open_calls"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	LastFailure     string     `json:"last_failure,omitempty"`
	Config          Config     `json:"config"`
}

// Snapshot returns the breaker's current state and counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	snap := Snapshot{
		Name:          cb.config.Name,
		State:         cb.state.String(),
		FailureCount:  cb.failures,
		SuccessCount:  cb.successes,
		HalfOpenCalls: cb.halfOpenCalls,
		Config:        cb.config,
	}

	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		snap.LastFailureTime = &t
	}
	if cb.lastFailure != nil {
		snap.LastFailure = cb.lastFailure.Error()
	}

	return snap
}
