package admission

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Window is how often every counter is cleared. All clients share the same
// window boundary; a client arriving late in a window gets less than a full
// window before the next reset.
const Window = 60 * time.Second

// Limiter counts requests per client IP inside a fixed window. A threshold
// of zero disables the limiter entirely: no counters are created and every
// request is admitted.
type Limiter struct {
	threshold int
	logger    *slog.Logger

	mutex  sync.Mutex
	counts map[string]int
}

func NewLimiter(threshold int, logger *slog.Logger) *Limiter {
	return &Limiter{
		threshold: threshold,
		logger:    logger,
		counts:    make(map[string]int),
	}
}

// Enabled reports whether a nonzero threshold is configured.
func (l *Limiter) Enabled() bool {
	return l.threshold > 0
}

// Allow records one request from clientIP and reports whether it fits the
// quota. Increments are linearized by the limiter's mutex, so concurrent
// requests from the same IP are neither lost nor double counted.
func (l *Limiter) Allow(clientIP string) bool {
	if !l.Enabled() {
		return true
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.counts[clientIP]++
	return l.counts[clientIP] <= l.threshold
}

// Reset clears every counter.
func (l *Limiter) Reset() {
	l.mutex.Lock()
	l.counts = make(map[string]int)
	l.mutex.Unlock()
}

// Run clears all counters once per window until ctx is cancelled. Callers
// should only start it when the limiter is enabled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(Window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Request counter reset loop stopped")
			return

		case <-ticker.C:
			l.Reset()
			l.logger.Debug("Request counters reset")
		}
	}
}
