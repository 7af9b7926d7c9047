package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mutex          sync.RWMutex
	forwarded      map[string]int64
	rejections     map[int]int64
	upstreamDeaths map[string]int64
	healthStatus   map[string]bool
	startTime      time.Time
}

type Snapshot struct {
	TotalForwarded int64            `json:"total_forwarded"`
	Uptime         time.Duration    `json:"uptime"`
	Forwarded      map[string]int64 `json:"forwarded"`
	Rejections     map[int]int64    `json:"rejections"`
	UpstreamDeaths map[string]int64 `json:"upstream_deaths"`
	HealthStatus   map[string]bool  `json:"health_status"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		forwarded:      make(map[string]int64),
		rejections:     make(map[int]int64),
		upstreamDeaths: make(map[string]int64),
		healthStatus:   make(map[string]bool),
		startTime:      time.Now(),
	}
}

func (m *Metrics) RecordForwarded(upstream string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.forwarded[upstream]++
}

func (m *Metrics) RecordRejection(statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[statusCode]++
}

func (m *Metrics) RecordUpstreamDead(upstream string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.upstreamDeaths[upstream]++
}

func (m *Metrics) UpdateHealthStatus(upstream string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[upstream] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:         time.Since(m.startTime),
		Forwarded:      make(map[string]int64, len(m.forwarded)),
		Rejections:     make(map[int]int64, len(m.rejections)),
		UpstreamDeaths: make(map[string]int64, len(m.upstreamDeaths)),
		HealthStatus:   make(map[string]bool, len(m.healthStatus)),
	}

	for upstream, count := range m.forwarded {
		snap.Forwarded[upstream] = count
		snap.TotalForwarded += count
	}
	for status, count := range m.rejections {
		snap.Rejections[status] = count
	}
	for upstream, count := range m.upstreamDeaths {
		snap.UpstreamDeaths[upstream] = count
	}
	for upstream, healthy := range m.healthStatus {
		snap.HealthStatus[upstream] = healthy
	}

	return snap
}
