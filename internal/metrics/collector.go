package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestForwarded EventType = "request_forwarded"
	EventRequestRejected  EventType = "request_rejected"
	EventUpstreamDead     EventType = "upstream_dead"
	EventHealthChanged    EventType = "health_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Upstream   string
	StatusCode int
	Healthy    bool
}

// Collector aggregates proxy events delivered over a buffered channel.
// Emitters send non-blocking and drop events when the buffer is full, so
// the hot path never waits on metrics.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Emit delivers an event without blocking. Events are dropped when the
// buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

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

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestForwarded:
		c.metrics.RecordForwarded(event.Upstream)

	case EventRequestRejected:
		c.metrics.RecordRejection(event.StatusCode)

	case EventUpstreamDead:
		c.metrics.RecordUpstreamDead(event.Upstream)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Upstream, event.Healthy)
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

func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return c.metrics.Snapshot()
}
