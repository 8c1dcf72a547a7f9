package circuitbreaker

// Observer receives breaker observations for metrics collection.
// Methods are invoked while the breaker's lock is held and must not block
// or call back into the breaker.
type Observer interface {
	// FailureRecorded fires once per recorded failure. Successes are never
	// reported; success is the uninstrumented default path.
	FailureRecorded(name string)

	// StateChanged fires on every state transition.
	StateChanged(name string, from, to State)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) FailureRecorded(string) {}

func (NopObserver) StateChanged(string, State, State) {}
