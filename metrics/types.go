package metrics

import "context"

type MetricType int

const (
	Counter MetricType = iota
	Gauge
	Histogram
	Summary
)

// CustomMetric describes an instrument to register up front. Recording
// against a name that was never registered is a silent no-op, so metrics can
// be stripped from a deployment without touching call sites.
type CustomMetric struct {
	Name        string
	Description string
	Type        MetricType
	Labels      []string
	Buckets     []float64 // histogram buckets, backend defaults apply when empty
}

// Collector is the recording surface handed to instrumented components.
// Implementations exist for prometheus pull and OTLP push.
type Collector interface {
	IncrementCounter(ctx context.Context, name string, labels map[string]string, value float64)
	SetGauge(ctx context.Context, name string, labels map[string]string, value float64)
	ObserveHistogram(ctx context.Context, name string, labels map[string]string, value float64)
	ObserveSummary(ctx context.Context, name string, labels map[string]string, value float64)
	RegisterCustomMetrics(metrics ...CustomMetric) error
	GetMetricsHandler() interface{}
}
