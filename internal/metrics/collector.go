package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
)

type EventType string

const (
	EventFailureRecorded EventType = "failure_recorded"
	EventStateChanged    EventType = "state_changed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Breaker   string
	From      string
	To        string
}

// Label values attached to every failure increment.
const (
	errorTypeLabel = "circuit_breaker"
	operationLabel = "protected_call"
)

// Collector is the metrics sink for circuit breakers. It satisfies
// circuitbreaker.Observer with non-blocking channel sends and applies the
// events to a private Prometheus registry in its own goroutine.
type Collector struct {
	eventCh      chan Event
	registry     *prometheus.Registry
	errorsTotal  *prometheus.CounterVec
	stateChanges *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
	logger       *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_errors_total",
			Help: "Total number of failures recorded by circuit breakers",
		},
		[]string{"error_type", "component", "operation"},
	)

	stateChanges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guard_state_changes_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guard_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half_open, 2=open)",
		},
		[]string{"name"},
	)

	registry.MustRegister(errorsTotal, stateChanges, breakerState)

	return &Collector{
		eventCh:      make(chan Event, bufferSize),
		registry:     registry,
		errorsTotal:  errorsTotal,
		stateChanges: stateChanges,
		breakerState: breakerState,
		logger:       logger,
	}
}

// Start launches the processing goroutine. It runs until ctx is cancelled,
// draining any queued events before returning.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventFailureRecorded:
		c.errorsTotal.WithLabelValues(errorTypeLabel, event.Breaker, operationLabel).Inc()

	case EventStateChanged:
		c.stateChanges.WithLabelValues(event.Breaker, event.From, event.To).Inc()
		c.breakerState.WithLabelValues(event.Breaker).Set(stateValue(event.To))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

// FailureRecorded implements circuitbreaker.Observer.
func (c *Collector) FailureRecorded(name string) {
	c.emit(Event{
		Type:      EventFailureRecorded,
		Timestamp: time.Now(),
		Breaker:   name,
	})
}

// StateChanged implements circuitbreaker.Observer.
func (c *Collector) StateChanged(name string, from, to circuitbreaker.State) {
	c.emit(Event{
		Type:      EventStateChanged,
		Timestamp: time.Now(),
		Breaker:   name,
		From:      from.String(),
		To:        to.String(),
	})
}

func (c *Collector) emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func stateValue(state string) float64 {
	switch state {
	case circuitbreaker.StateHalfOpen.String():
		return 1
	case circuitbreaker.StateOpen.String():
		return 2
	default:
		return 0
	}
}
