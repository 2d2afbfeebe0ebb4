// Package monitor collects dispatch metrics.
//
// Metrics exports counters and a latency histogram to Prometheus;
// SimpleMetricsCollector keeps the same figures in memory for the run
// summary. Both implement dispatch.MetricsCollector and can be combined
// with Multi.
package monitor
