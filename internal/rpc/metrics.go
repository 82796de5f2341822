package rpc

import (
	"sort"
	"sync"
	"time"
)

// Metrics tracks per-method request counts and latencies for the broker.
type Metrics struct {
	mu            sync.Mutex
	startTime     time.Time
	totalConns    int64
	rejectedConns int64
	methods       map[string]*methodStats
}

type methodStats struct {
	count        int64
	errors       int64
	totalLatency time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		methods:   make(map[string]*methodStats),
	}
}

// RecordConnection counts an accepted connection.
func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConns++
}

// RecordRejectedConnection counts a connection refused at the limit.
func (m *Metrics) RecordRejectedConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectedConns++
}

// RecordRequest records one dispatched request.
func (m *Metrics) RecordRequest(method string, latency time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.methods[method]
	if !ok {
		stats = &methodStats{minLatency: latency, maxLatency: latency}
		m.methods[method] = stats
	}
	stats.count++
	if failed {
		stats.errors++
	}
	stats.totalLatency += latency
	if latency < stats.minLatency {
		stats.minLatency = latency
	}
	if latency > stats.maxLatency {
		stats.maxLatency = latency
	}
}

// MethodSnapshot is the externally visible view of one method's counters.
type MethodSnapshot struct {
	Method string  `json:"method"`
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	AvgMS  float64 `json:"avg_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// Snapshot is the externally visible view of the broker counters.
type Snapshot struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	TotalConns    int64            `json:"total_connections"`
	RejectedConns int64            `json:"rejected_connections"`
	Methods       []MethodSnapshot `json:"methods,omitempty"`
}

// Snapshot returns a copy of the current counters, methods sorted by name.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		TotalConns:    m.totalConns,
		RejectedConns: m.rejectedConns,
	}
	for method, stats := range m.methods {
		ms := MethodSnapshot{
			Method: method,
			Count:  stats.count,
			Errors: stats.errors,
			MinMS:  float64(stats.minLatency) / float64(time.Millisecond),
			MaxMS:  float64(stats.maxLatency) / float64(time.Millisecond),
		}
		if stats.count > 0 {
			ms.AvgMS = float64(stats.totalLatency) / float64(stats.count) / float64(time.Millisecond)
		}
		snap.Methods = append(snap.Methods, ms)
	}
	sort.Slice(snap.Methods, func(i, j int) bool {
		return snap.Methods[i].Method < snap.Methods[j].Method
	})
	return snap
}
