package circuitbreaker

import "context"

// Do runs fn under the breaker's protection: admission check, the call
// itself, then outcome recording. If admission is refused, fn is never
// invoked and an *OpenError is returned. fn's own error is recorded as a
// failure and propagated unmodified; the breaker never swallows it.
//
// The breaker's lock is not held while fn runs, so fn may block on I/O
// without serializing other callers.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return cb.openError()
	}

	if err := fn(ctx); err != nil {
		cb.RecordFailure(err)
		return err
	}

	cb.RecordSuccess()
	return nil
}

// Wrap transforms a context-aware operation into an equivalent protected
// operation, for call sites that keep a callable around instead of wrapping
// a block.
func (cb *CircuitBreaker) Wrap(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return cb.Do(ctx, fn)
	}
}

// WrapFunc is Wrap for plain sequential callables that take no context.
// It carries the same mutex-guarded admission and recording as the
// context-aware path; both wrappers are safe for concurrent use.
func (cb *CircuitBreaker) WrapFunc(fn func() error) func() error {
	return func() error {
		if !cb.Allow() {
			return cb.openError()
		}

		if err := fn(); err != nil {
			cb.RecordFailure(err)
			return err
		}

		cb.RecordSuccess()
		return nil
	}
}

func (cb *CircuitBreaker) openError() *OpenError {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return &OpenError{
		Name:        cb.config.Name,
		State:       cb.state,
		LastFailure: cb.lastFailure,
	}
}
