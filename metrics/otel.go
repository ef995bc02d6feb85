package metrics

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/finch-technologies/go-queue/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type OtelConfig struct {
	Endpoint    string // collector address, host:port
	Protocol    string // "grpc" or "http"
	ServiceName string
	Interval    time.Duration
	Insecure    bool
}

func getOtelConfig(config ...OtelConfig) OtelConfig {
	defaultConfig := OtelConfig{
		Endpoint:    utils.StringOrDefault(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "localhost:4317"),
		Protocol:    utils.StringOrDefault(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"), "grpc"),
		ServiceName: utils.StringOrDefault(os.Getenv("OTEL_SERVICE_NAME"), "go-queue"),
		Interval:    time.Duration(utils.StringToIntOrDefault(os.Getenv("OTEL_EXPORT_INTERVAL"), 30)) * time.Second,
	}

	if len(config) == 0 {
		return defaultConfig
	}

	cfg := config[0]
	utils.MergeObjects(&cfg, defaultConfig)

	return cfg
}

// NewOtelProvider creates a meter provider that pushes metrics to an OTLP
// collector and installs it as the global provider. The returned provider
// must be shut down on exit to flush the final export.
func NewOtelProvider(ctx context.Context, config ...OtelConfig) (*sdkmetric.MeterProvider, error) {
	cfg := getOtelConfig(config...)

	var exporter sdkmetric.Exporter
	var err error

	switch cfg.Protocol {
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		creds := credentials.NewTLS(&tls.Config{})
		if cfg.Insecure {
			creds = insecure.NewCredentials()
		}

		conn, dialErr := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
		if dialErr != nil {
			return nil, fmt.Errorf("failed to connect to otel collector: %w", dialErr)
		}

		exporter, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create otel exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
	)

	otel.SetMeterProvider(provider)

	return provider, nil
}

type OtelCollector struct {
	meter      metric.Meter
	counters   map[string]metric.Float64Counter
	gauges     map[string]metric.Float64Gauge
	histograms map[string]metric.Float64Histogram
	mu         sync.Mutex
}

func NewOtelCollector(namespace string) *OtelCollector {
	return &OtelCollector{
		meter:      otel.Meter(namespace),
		counters:   make(map[string]metric.Float64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (o *OtelCollector) IncrementCounter(ctx context.Context, name string, labels map[string]string, value float64) {
	o.mu.Lock()
	counter, exists := o.counters[name]
	o.mu.Unlock()

	if !exists {
		return
	}

	counter.Add(ctx, value, metric.WithAttributes(toAttributes(labels)...))
}

func (o *OtelCollector) SetGauge(ctx context.Context, name string, labels map[string]string, value float64) {
	o.mu.Lock()
	gauge, exists := o.gauges[name]
	o.mu.Unlock()

	if !exists {
		return
	}

	gauge.Record(ctx, value, metric.WithAttributes(toAttributes(labels)...))
}

func (o *OtelCollector) ObserveHistogram(ctx context.Context, name string, labels map[string]string, value float64) {
	o.mu.Lock()
	histogram, exists := o.histograms[name]
	o.mu.Unlock()

	if !exists {
		return
	}

	histogram.Record(ctx, value, metric.WithAttributes(toAttributes(labels)...))
}

// ObserveSummary records into a histogram because OTLP has no summary instrument
func (o *OtelCollector) ObserveSummary(ctx context.Context, name string, labels map[string]string, value float64) {
	o.ObserveHistogram(ctx, name, labels, value)
}

func (o *OtelCollector) RegisterCustomMetrics(metrics ...CustomMetric) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, m := range metrics {
		switch m.Type {
		case Counter:
			counter, err := o.meter.Float64Counter(m.Name, metric.WithDescription(m.Description))
			if err != nil {
				return err
			}
			o.counters[m.Name] = counter

		case Gauge:
			gauge, err := o.meter.Float64Gauge(m.Name, metric.WithDescription(m.Description))
			if err != nil {
				return err
			}
			o.gauges[m.Name] = gauge

		case Histogram, Summary:
			opts := []metric.Float64HistogramOption{metric.WithDescription(m.Description)}
			if len(m.Buckets) > 0 {
				opts = append(opts, metric.WithExplicitBucketBoundaries(m.Buckets...))
			}

			histogram, err := o.meter.Float64Histogram(m.Name, opts...)
			if err != nil {
				return err
			}
			o.histograms[m.Name] = histogram
		}
	}

	return nil
}

// GetMetricsHandler returns nil, OTLP is push based and exposes no scrape endpoint
func (o *OtelCollector) GetMetricsHandler() interface{} {
	return nil
}

func toAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
