package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application instruments
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Pipeline metrics
	StageDuration  metric.Float64Histogram
	StagesTotal    metric.Int64Counter
	RecordsTotal   metric.Int64Counter
	AnomaliesTotal metric.Int64Counter
	RunsTotal      metric.Int64Counter

	// WebSocket metrics
	WSClients       metric.Int64UpDownCounter
	WSMessagesTotal metric.Int64Counter
}

// NewMetrics creates the application instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stagesTotal, err := meter.Int64Counter(
		"pipeline_stages_total",
		metric.WithDescription("Total number of pipeline stages executed"),
	)
	if err != nil {
		return nil, err
	}

	recordsTotal, err := meter.Int64Counter(
		"pipeline_records_total",
		metric.WithDescription("Records that survived cleaning, by kind"),
	)
	if err != nil {
		return nil, err
	}

	anomaliesTotal, err := meter.Int64Counter(
		"pipeline_anomalies_total",
		metric.WithDescription("Enrollment records flagged as anomalous"),
	)
	if err != nil {
		return nil, err
	}

	runsTotal, err := meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of pipeline runs by status"),
	)
	if err != nil {
		return nil, err
	}

	wsClients, err := meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Connected run event subscribers"),
	)
	if err != nil {
		return nil, err
	}

	wsMessagesTotal, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Run event deliveries by result"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,
		StageDuration:       stageDuration,
		StagesTotal:         stagesTotal,
		RecordsTotal:        recordsTotal,
		AnomaliesTotal:      anomaliesTotal,
		RunsTotal:           runsTotal,
		WSClients:           wsClients,
		WSMessagesTotal:     wsMessagesTotal,
	}, nil
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStage records the outcome of one pipeline stage
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	m.StagesTotal.Add(ctx, 1, attrs)
	m.StageDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRecords adds cleaned record counts for kind
func (m *Metrics) RecordRecords(ctx context.Context, kind string, n int) {
	m.RecordsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordAnomalies adds flagged record counts
func (m *Metrics) RecordAnomalies(ctx context.Context, n int) {
	m.AnomaliesTotal.Add(ctx, int64(n))
}

// RecordRun counts a finished run
func (m *Metrics) RecordRun(ctx context.Context, status string) {
	m.RunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordWSConnection tracks a subscriber connecting (+1) or leaving (-1)
func (m *Metrics) RecordWSConnection(ctx context.Context, delta int64) {
	m.WSClients.Add(ctx, delta)
}

// RecordWSBroadcast counts the deliveries of one broadcast
func (m *Metrics) RecordWSBroadcast(ctx context.Context, delivered, dropped int) {
	if delivered > 0 {
		m.WSMessagesTotal.Add(ctx, int64(delivered), metric.WithAttributes(attribute.String("result", "delivered")))
	}
	if dropped > 0 {
		m.WSMessagesTotal.Add(ctx, int64(dropped), metric.WithAttributes(attribute.String("result", "dropped")))
	}
}

// RuntimeStats is a point-in-time view of the Go runtime for health checks
type RuntimeStats struct {
	Goroutines   int    `json:"goroutines"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	SysBytes     uint64 `json:"sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
	CPUCount     int    `json:"cpu_count"`
	UptimeSecond int64  `json:"uptime_seconds"`
}

// CollectRuntimeStats reads runtime counters relative to the process start time
func CollectRuntimeStats(startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    memStats.HeapAlloc,
		SysBytes:     memStats.Sys,
		NumGC:        memStats.NumGC,
		CPUCount:     runtime.NumCPU(),
		UptimeSecond: int64(time.Since(startTime).Seconds()),
	}
}
