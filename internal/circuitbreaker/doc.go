// Package circuitbreaker implements the circuit breaker pattern for guarding
// calls to unreliable dependencies (model endpoints, vector stores, webhook
// receivers).
//
// A circuit breaker prevents cascading failures by refusing calls to a
// dependency once its recent failures cross a threshold. It has three states:
//
//   - closed: normal operation, calls pass through; consecutive failures are counted
//   - open: calls are refused immediately with an OpenError
//   - half_open: a limited number of trial calls probe whether the dependency recovered
//
// Callers follow a three-step protocol: ask for admission, run the call, and
// report the outcome. The Do and Wrap helpers package that protocol up:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(""), logger, observer)
//	cb, _ := registry.GetOrCreate("inference")
//
//	err := cb.Do(ctx, func(ctx context.Context) error {
//	    return client.Predict(ctx, req)
//	})
//	var open *circuitbreaker.OpenError
//	if errors.As(err, &open) {
//	    // protection engaged, the dependency was never called
//	}
//
// Breakers sharing a dependency name share one instance via the Registry.
// The breaker never retries on its own; RetryDelay computes a suggested
// backoff for callers that implement their own retry loop.
package circuitbreaker
