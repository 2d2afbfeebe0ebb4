package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/glimte/intercept-go/dispatch"
)

var _ dispatch.MetricsCollector = (*SimpleMetricsCollector)(nil)

// SimpleMetricsCollector implements an in-memory dispatch metrics collector
type SimpleMetricsCollector struct {
	mu sync.RWMutex

	// Dispatch counters by target kind and outcome
	dispatchCounters map[string]map[string]int64

	// Dispatch time stats by target kind
	dispatchTimes map[string]*TimeStats
}

// TimeStats tracks timing statistics
type TimeStats struct {
	Count   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	samples []time.Duration // last 100 samples for percentiles
}

// NewSimpleMetricsCollector creates a new in-memory metrics collector
func NewSimpleMetricsCollector() *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		dispatchCounters: make(map[string]map[string]int64),
		dispatchTimes:    make(map[string]*TimeStats),
	}
}

func key(domain, targetKind string) string {
	return domain + "/" + targetKind
}

// IncrementDispatchCount implements dispatch.MetricsCollector
func (c *SimpleMetricsCollector) IncrementDispatchCount(domain, targetKind, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(domain, targetKind)
	if c.dispatchCounters[k] == nil {
		c.dispatchCounters[k] = make(map[string]int64)
	}
	c.dispatchCounters[k][outcome]++
}

// RecordDispatchTime implements dispatch.MetricsCollector
func (c *SimpleMetricsCollector) RecordDispatchTime(domain, targetKind string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(domain, targetKind)
	stats, exists := c.dispatchTimes[k]
	if !exists {
		stats = &TimeStats{
			Min:     duration,
			Max:     duration,
			samples: make([]time.Duration, 0, 100),
		}
		c.dispatchTimes[k] = stats
	}

	stats.Count++
	stats.Total += duration
	if duration < stats.Min {
		stats.Min = duration
	}
	if duration > stats.Max {
		stats.Max = duration
	}

	if len(stats.samples) >= 100 {
		stats.samples = stats.samples[1:]
	}
	stats.samples = append(stats.samples, duration)
}

// MetricsSummary represents a snapshot of all metrics, keyed by "domain/kind"
type MetricsSummary struct {
	DispatchCounts map[string]map[string]int64 `json:"dispatchCounts"`
	DispatchStats  map[string]DispatchStats    `json:"dispatchStats"`
}

// DispatchStats represents dispatch time statistics for a target kind
type DispatchStats struct {
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// GetMetricsSummary returns a summary of all collected metrics
func (c *SimpleMetricsCollector) GetMetricsSummary() MetricsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := MetricsSummary{
		DispatchCounts: make(map[string]map[string]int64),
		DispatchStats:  make(map[string]DispatchStats),
	}

	for k, outcomes := range c.dispatchCounters {
		summary.DispatchCounts[k] = make(map[string]int64, len(outcomes))
		for outcome, count := range outcomes {
			summary.DispatchCounts[k][outcome] = count
		}
	}

	for k, stats := range c.dispatchTimes {
		s := DispatchStats{
			Count: stats.Count,
			Min:   stats.Min,
			Max:   stats.Max,
		}
		if stats.Count > 0 {
			s.Avg = stats.Total / time.Duration(stats.Count)
		}
		if len(stats.samples) > 0 {
			sorted := make([]time.Duration, len(stats.samples))
			copy(sorted, stats.samples)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			s.P50 = percentile(sorted, 0.50)
			s.P95 = percentile(sorted, 0.95)
			s.P99 = percentile(sorted, 0.99)
		}
		summary.DispatchStats[k] = s
	}

	return summary
}

// percentile expects sorted samples
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// Reset clears all collected metrics
func (c *SimpleMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dispatchCounters = make(map[string]map[string]int64)
	c.dispatchTimes = make(map[string]*TimeStats)
}

// Multi fans metrics out to several collectors
type Multi []dispatch.MetricsCollector

// IncrementDispatchCount implements dispatch.MetricsCollector
func (m Multi) IncrementDispatchCount(domain, targetKind, outcome string) {
	for _, c := range m {
		c.IncrementDispatchCount(domain, targetKind, outcome)
	}
}

// RecordDispatchTime implements dispatch.MetricsCollector
func (m Multi) RecordDispatchTime(domain, targetKind string, duration time.Duration) {
	for _, c := range m {
		c.RecordDispatchTime(domain, targetKind, duration)
	}
}
