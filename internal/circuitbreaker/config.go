package circuitbreaker

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds the failure and recovery policy for one named breaker.
// It is validated at construction and never mutated afterwards.
type Config struct {
	// Name identifies the breaker; it is the registry key and appears in
	// diagnostics, logs and metrics labels.
	Name string `json:"name" mapstructure:"name"`

	// FailureThreshold is the number of consecutive failures in the closed
	// state before the breaker opens.
	FailureThreshold int `json:"failure_threshold" mapstructure:"failure_threshold"`

	// SuccessThreshold is the number of consecutive successes in the
	// half-open state before the breaker closes again.
	SuccessThreshold int `json:"success_threshold" mapstructure:"success_threshold"`

	// ResetTimeout is how long the breaker stays open before a trial call
	// is admitted.
	ResetTimeout time.Duration `json:"reset_timeout" mapstructure:"reset_timeout"`

	// HalfOpenMaxCalls caps the number of trial calls admitted per
	// half-open episode.
	HalfOpenMaxCalls int `json:"half_open_max_calls" mapstructure:"half_open_max_calls"`

	// ExponentialBase is the base for the RetryDelay backoff advisory.
	ExponentialBase float64 `json:"exponential_base" mapstructure:"exponential_base"`

	// MaxRetryDelay caps the delay RetryDelay can suggest.
	MaxRetryDelay time.Duration `json:"max_retry_delay" mapstructure:"max_retry_delay"`
}

// DefaultConfig returns the policy used when a caller does not supply one.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 3,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 3,
		ExponentialBase:  2.0,
		MaxRetryDelay:    60 * time.Second,
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.ResetTimeout, validation.By(minDuration(time.Second))),
		validation.Field(&c.HalfOpenMaxCalls, validation.Required, validation.Min(1)),
		validation.Field(&c.ExponentialBase, validation.Required, validation.Min(1.0)),
		validation.Field(&c.MaxRetryDelay, validation.By(minDuration(time.Second))),
	)
}

func minDuration(min time.Duration) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(time.Duration)
		if !ok {
			return validation.NewError("validation_invalid_type", "must be a duration")
		}
		if d < min {
			return validation.NewError("validation_duration_too_short",
				fmt.Sprintf("must be no less than %s", min))
		}
		return nil
	}
}
