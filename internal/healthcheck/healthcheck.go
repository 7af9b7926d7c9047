package healthcheck

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/balancerd/internal/httpcodec"
	"github.com/angeloszaimis/balancerd/internal/metrics"
	"github.com/angeloszaimis/balancerd/internal/upstream"
)

// probeTimeout bounds each dial and each probe's I/O so one black-holed
// upstream cannot wedge a whole pass.
const probeTimeout = 5 * time.Second

// Checker periodically probes every configured upstream, alive or dead, and
// republishes the pool's partition from the results. A completed pass is
// authoritative over any failover marking that raced with it.
type Checker struct {
	pool      *upstream.Pool
	path      string
	interval  time.Duration
	logger    *slog.Logger
	collector *metrics.Collector

	// lastKnown is only touched by the checker goroutine.
	lastKnown map[string]bool
}

func NewChecker(pool *upstream.Pool, path string, interval time.Duration, logger *slog.Logger, collector *metrics.Collector) *Checker {
	return &Checker{
		pool:      pool,
		path:      path,
		interval:  interval,
		logger:    logger,
		collector: collector,
		lastKnown: make(map[string]bool),
	}
}

// Run probes on the configured interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Health check stopped")
			return

		case <-ticker.C:
			c.Pass()
		}
	}
}

// Pass probes the union of both partitions once and republishes the result
// in a single pool update.
func (c *Checker) Pass() {
	addresses := c.pool.Addresses()

	alive := make([]string, 0, len(addresses))
	dead := make([]string, 0)

	for _, addr := range addresses {
		if c.probe(addr) {
			alive = append(alive, addr)
		} else {
			dead = append(dead, addr)
		}
	}

	c.pool.Republish(alive, dead)
	c.reportTransitions(alive, dead)

	c.logger.Debug("Health check pass complete",
		slog.Int("alive", len(alive)),
		slog.Int("dead", len(dead)))
}

// probe opens a fresh TCP connection, sends a GET to the health check path
// and accepts only a well-formed 200. Connect failures, I/O errors,
// malformed responses and non-200 statuses all count the same: not alive.
func (c *Checker) probe(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return false
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(probeTimeout)); err != nil {
		return false
	}

	req := &http.Request{
		Method:     http.MethodGet,
		URL:        &url.URL{Path: c.path},
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Host:       addr,
		Header:     make(http.Header),
	}

	if err := httpcodec.WriteRequest(req, conn); err != nil {
		return false
	}

	resp, err := httpcodec.ReadResponse(bufio.NewReader(conn), http.MethodGet)
	if err != nil {
		return false
	}

	return resp.StatusCode == http.StatusOK
}

func (c *Checker) reportTransitions(alive, dead []string) {
	for _, addr := range alive {
		if healthy, known := c.lastKnown[addr]; !known || !healthy {
			if known {
				c.logger.Info("Upstream is back up", slog.String("upstream", addr))
			}
			c.collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventHealthChanged,
				Timestamp: time.Now(),
				Upstream:  addr,
				Healthy:   true,
			})
		}
		c.lastKnown[addr] = true
	}

	for _, addr := range dead {
		if healthy, known := c.lastKnown[addr]; !known || healthy {
			c.logger.Warn("Upstream is down", slog.String("upstream", addr))
			c.collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventHealthChanged,
				Timestamp: time.Now(),
				Upstream:  addr,
				Healthy:   false,
			})
		}
		c.lastKnown[addr] = false
	}
}
