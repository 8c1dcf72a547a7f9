package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
)

var _ = Describe("Guard", func() {
	var (
		cb  *circuitbreaker.CircuitBreaker
		ctx context.Context
	)

	BeforeEach(func() {
		cfg := circuitbreaker.DefaultConfig("inference")
		cfg.FailureThreshold = 2
		cfg.SuccessThreshold = 1
		cfg.ResetTimeout = time.Second
		cb = newBreaker(cfg)
		ctx = context.Background()
	})

	tripBreaker := func() {
		cb.RecordFailure(errors.New("timeout"))
		cb.RecordFailure(errors.New("timeout"))
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	Describe("Do", func() {
		It("should run the guarded block and record success", func() {
			ran := false
			err := cb.Do(ctx, func(context.Context) error {
				ran = true
				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(ran).To(BeTrue())
		})

		It("should propagate the block's error unmodified", func() {
			cause := errors.New("upstream exploded")
			err := cb.Do(ctx, func(context.Context) error {
				return cause
			})

			Expect(err).To(BeIdenticalTo(cause))
			Expect(cb.Snapshot().FailureCount).To(Equal(1))
		})

		It("should open after enough failing calls", func() {
			boom := errors.New("boom")
			for i := 0; i < 2; i++ {
				_ = cb.Do(ctx, func(context.Context) error { return boom })
			}

			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should refuse without invoking the block once open", func() {
			tripBreaker()

			ran := false
			err := cb.Do(ctx, func(context.Context) error {
				ran = true
				return nil
			})

			Expect(ran).To(BeFalse())

			var open *circuitbreaker.OpenError
			Expect(errors.As(err, &open)).To(BeTrue())
			Expect(open.Name).To(Equal("inference"))
			Expect(open.State).To(Equal(circuitbreaker.StateOpen))
			Expect(open.LastFailure).To(MatchError("timeout"))
		})

		It("should match the ErrOpen sentinel on refusal", func() {
			tripBreaker()

			err := cb.Do(ctx, func(context.Context) error { return nil })
			Expect(errors.Is(err, circuitbreaker.ErrOpen)).To(BeTrue())
		})

		It("should record a cancelled call as the caller reports it", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			err := cb.Do(cancelled, func(c context.Context) error {
				return c.Err()
			})

			Expect(err).To(MatchError(context.Canceled))
			Expect(cb.Snapshot().FailureCount).To(Equal(1))
		})
	})

	Describe("Wrap", func() {
		It("should produce an operation equivalent to Do", func() {
			calls := 0
			protected := cb.Wrap(func(context.Context) error {
				calls++
				return nil
			})

			Expect(protected(ctx)).To(Succeed())
			Expect(protected(ctx)).To(Succeed())
			Expect(calls).To(Equal(2))
		})

		It("should refuse once the breaker opens", func() {
			boom := errors.New("boom")
			protected := cb.Wrap(func(context.Context) error { return boom })

			Expect(protected(ctx)).To(MatchError(boom))
			Expect(protected(ctx)).To(MatchError(boom))

			err := protected(ctx)
			Expect(errors.Is(err, circuitbreaker.ErrOpen)).To(BeTrue())
		})
	})

	Describe("WrapFunc", func() {
		It("should guard plain sequential callables", func() {
			boom := errors.New("boom")
			failing := cb.WrapFunc(func() error { return boom })

			Expect(failing()).To(MatchError(boom))
			Expect(failing()).To(MatchError(boom))
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

			err := failing()
			var open *circuitbreaker.OpenError
			Expect(errors.As(err, &open)).To(BeTrue())
		})

		It("should record successes like the context-aware path", func() {
			cb.RecordFailure(errors.New("timeout"))

			ok := cb.WrapFunc(func() error { return nil })
			Expect(ok()).To(Succeed())
			Expect(cb.Snapshot().FailureCount).To(Equal(0))
		})

		It("should be safe for concurrent use", func() {
			const goroutines = 50

			boom := errors.New("boom")
			half := cb.WrapFunc(func() error { return boom })
			other := cb.WrapFunc(func() error { return nil })

			var wg sync.WaitGroup
			wg.Add(goroutines * 2)
			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					_ = half()
				}()
				go func() {
					defer wg.Done()
					_ = other()
				}()
			}
			wg.Wait()

			Expect(cb.State()).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))
		})
	})

	Describe("OpenError", func() {
		It("should describe the breaker and its last failure", func() {
			err := &circuitbreaker.OpenError{
				Name:        "crm",
				State:       circuitbreaker.StateOpen,
				LastFailure: errors.New("dial tcp: connection refused"),
			}

			Expect(err.Error()).To(ContainSubstring(`"crm"`))
			Expect(err.Error()).To(ContainSubstring("open"))
			Expect(err.Error()).To(ContainSubstring("connection refused"))
		})

		It("should describe a breaker with no recorded failure", func() {
			err := &circuitbreaker.OpenError{Name: "crm", State: circuitbreaker.StateOpen}
			Expect(err.Error()).To(Equal(`circuit breaker "crm" is open`))
		})
	})
})
