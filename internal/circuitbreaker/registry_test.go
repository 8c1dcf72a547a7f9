package circuitbreaker_test

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig(""), nil, nil)
	})

	Describe("NewRegistry", func() {
		It("should create an empty registry", func() {
			Expect(registry).NotTo(BeNil())
			Expect(registry.Names()).To(BeEmpty())
		})
	})

	Describe("GetOrCreate", func() {
		It("should create a new breaker for an unknown name", func() {
			cb, err := registry.GetOrCreate("inference")
			Expect(err).NotTo(HaveOccurred())
			Expect(cb).NotTo(BeNil())
			Expect(cb.Name()).To(Equal("inference"))
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the identical instance for the same name", func() {
			cb1, err := registry.GetOrCreate("inference")
			Expect(err).NotTo(HaveOccurred())

			cb2, err := registry.GetOrCreate("inference")
			Expect(err).NotTo(HaveOccurred())
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should share counters between references to the same name", func() {
			cb1, _ := registry.GetOrCreate("inference")
			cb2, _ := registry.GetOrCreate("inference")

			cb1.RecordFailure(errors.New("timeout"))
			Expect(cb2.Snapshot().FailureCount).To(Equal(1))
		})

		It("should return different breakers for different names", func() {
			cb1, _ := registry.GetOrCreate("inference")
			cb2, _ := registry.GetOrCreate("vector-store")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should build new breakers from the registry defaults", func() {
			defaults := circuitbreaker.DefaultConfig("")
			defaults.FailureThreshold = 2
			registry = circuitbreaker.NewRegistry(defaults, nil, nil)

			cb, err := registry.GetOrCreate("inference")
			Expect(err).NotTo(HaveOccurred())

			cb.RecordFailure(errors.New("timeout"))
			cb.RecordFailure(errors.New("timeout"))
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should honor a caller-supplied config on first creation", func() {
			cfg := circuitbreaker.DefaultConfig("")
			cfg.FailureThreshold = 1

			cb, err := registry.GetOrCreate("webhook", cfg)
			Expect(err).NotTo(HaveOccurred())

			cb.RecordFailure(errors.New("503"))
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("should ignore a differing config once the breaker exists", func() {
			cb1, err := registry.GetOrCreate("webhook")
			Expect(err).NotTo(HaveOccurred())

			loose := circuitbreaker.DefaultConfig("")
			loose.FailureThreshold = 100

			cb2, err := registry.GetOrCreate("webhook", loose)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb2).To(BeIdenticalTo(cb1))
			Expect(cb2.Config().FailureThreshold).To(Equal(5))
		})

		It("should reject an invalid caller-supplied config", func() {
			cfg := circuitbreaker.DefaultConfig("")
			cfg.SuccessThreshold = 0

			_, err := registry.GetOrCreate("webhook", cfg)
			Expect(err).To(HaveOccurred())
			Expect(registry.Names()).To(BeEmpty())
		})
	})

	Describe("Get", func() {
		It("should report missing breakers without creating them", func() {
			_, exists := registry.Get("inference")
			Expect(exists).To(BeFalse())
			Expect(registry.Names()).To(BeEmpty())
		})

		It("should return an existing breaker", func() {
			created, _ := registry.GetOrCreate("inference")

			got, exists := registry.Get("inference")
			Expect(exists).To(BeTrue())
			Expect(got).To(BeIdenticalTo(created))
		})
	})

	Describe("Concurrent access", func() {
		It("should create exactly one breaker per name under concurrency", func() {
			const goroutines = 100
			const callsPerGoroutine = 10

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					for j := 0; j < callsPerGoroutine; j++ {
						cb, err := registry.GetOrCreate("inference")
						Expect(err).NotTo(HaveOccurred())
						Expect(cb).NotTo(BeNil())
					}
				}()
			}
			wg.Wait()

			Expect(registry.Names()).To(Equal([]string{"inference"}))
		})
	})

	Describe("States", func() {
		It("should return the state of every breaker", func() {
			healthy, _ := registry.GetOrCreate("inference")
			broken, _ := registry.GetOrCreate("webhook")

			for i := 0; i < 5; i++ {
				broken.RecordFailure(errors.New("503"))
			}

			states := registry.States()
			Expect(states).To(HaveLen(2))
			Expect(states["inference"]).To(Equal(circuitbreaker.StateClosed))
			Expect(states["webhook"]).To(Equal(circuitbreaker.StateOpen))
			Expect(healthy.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Snapshots", func() {
		It("should return snapshots sorted by name", func() {
			_, _ = registry.GetOrCreate("webhook")
			_, _ = registry.GetOrCreate("inference")
			cb, _ := registry.GetOrCreate("crm")
			cb.RecordFailure(errors.New("timeout"))

			snaps := registry.Snapshots()
			Expect(snaps).To(HaveLen(3))
			Expect(snaps[0].Name).To(Equal("crm"))
			Expect(snaps[1].Name).To(Equal("inference"))
			Expect(snaps[2].Name).To(Equal("webhook"))
			Expect(snaps[0].FailureCount).To(Equal(1))
		})
	})

	Describe("Names", func() {
		It("should list registered names in sorted order", func() {
			_, _ = registry.GetOrCreate("webhook")
			_, _ = registry.GetOrCreate("inference")

			Expect(registry.Names()).To(Equal([]string{"inference", "webhook"}))
		})
	})
})

var _ = Describe("Config", func() {
	valid := func() circuitbreaker.Config {
		return circuitbreaker.DefaultConfig("inference")
	}

	Describe("DefaultConfig", func() {
		It("should produce a valid configuration", func() {
			Expect(valid().Validate()).To(Succeed())
		})

		It("should mirror the documented defaults", func() {
			cfg := valid()
			Expect(cfg.FailureThreshold).To(Equal(5))
			Expect(cfg.SuccessThreshold).To(Equal(3))
			Expect(cfg.ResetTimeout).To(Equal(60 * time.Second))
			Expect(cfg.HalfOpenMaxCalls).To(Equal(3))
			Expect(cfg.ExponentialBase).To(Equal(2.0))
			Expect(cfg.MaxRetryDelay).To(Equal(60 * time.Second))
		})
	})

	Describe("Validate", func() {
		It("should require a name", func() {
			cfg := valid()
			cfg.Name = ""
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a failure threshold of at least one", func() {
			cfg := valid()
			cfg.FailureThreshold = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a success threshold of at least one", func() {
			cfg := valid()
			cfg.SuccessThreshold = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a reset timeout of at least one second", func() {
			cfg := valid()
			cfg.ResetTimeout = 500 * time.Millisecond
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a half-open budget of at least one", func() {
			cfg := valid()
			cfg.HalfOpenMaxCalls = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require an exponential base of at least one", func() {
			cfg := valid()
			cfg.ExponentialBase = 0.5
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should require a max retry delay of at least one second", func() {
			cfg := valid()
			cfg.MaxRetryDelay = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})
})
