package circuitbreaker

import (
	"errors"
	"fmt"
)

// ErrOpen is the sentinel for refusal errors; errors.Is(err, ErrOpen)
// matches any *OpenError regardless of which breaker raised it.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned when the breaker refuses a call at admission time.
// The guarded operation was not attempted.
type OpenError struct {
	Name        string
	State       State
	LastFailure error
}

func (e *OpenError) Error() string {
	if e.LastFailure != nil {
		return fmt.Sprintf("circuit breaker %q is %s (last failure: %v)", e.Name, e.State, e.LastFailure)
	}
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}
