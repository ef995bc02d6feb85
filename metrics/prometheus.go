package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector records into a private registry, exposed for scraping
// through GetMetricsHandler.
type PrometheusCollector struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	summaries  map[string]*prometheus.SummaryVec
	mu         sync.Mutex
	namespace  string
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		summaries:  make(map[string]*prometheus.SummaryVec),
		namespace:  namespace,
	}
}

func (p *PrometheusCollector) IncrementCounter(ctx context.Context, name string, labels map[string]string, value float64) {
	p.mu.Lock()
	counter, exists := p.counters[name]
	p.mu.Unlock()

	if !exists {
		return
	}

	counter.With(labels).Add(value)
}

func (p *PrometheusCollector) SetGauge(ctx context.Context, name string, labels map[string]string, value float64) {
	p.mu.Lock()
	gauge, exists := p.gauges[name]
	p.mu.Unlock()

	if !exists {
		return
	}

	gauge.With(labels).Set(value)
}

func (p *PrometheusCollector) ObserveHistogram(ctx context.Context, name string, labels map[string]string, value float64) {
	p.mu.Lock()
	histogram, exists := p.histograms[name]
	p.mu.Unlock()

	if !exists {
		return
	}

	histogram.With(labels).Observe(value)
}

func (p *PrometheusCollector) ObserveSummary(ctx context.Context, name string, labels map[string]string, value float64) {
	p.mu.Lock()
	summary, exists := p.summaries[name]
	p.mu.Unlock()

	if !exists {
		return
	}

	summary.With(labels).Observe(value)
}

func (p *PrometheusCollector) RegisterCustomMetrics(metrics ...CustomMetric) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range metrics {
		if err := p.register(m); err != nil {
			return err
		}
	}

	return nil
}

func (p *PrometheusCollector) register(m CustomMetric) error {
	switch m.Type {
	case Counter:
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)

		if err := p.registry.Register(counter); err != nil {
			return err
		}

		p.counters[m.Name] = counter

	case Gauge:
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)

		if err := p.registry.Register(gauge); err != nil {
			return err
		}

		p.gauges[m.Name] = gauge

	case Histogram:
		buckets := m.Buckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}

		histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   buckets,
		}, m.Labels)

		if err := p.registry.Register(histogram); err != nil {
			return err
		}

		p.histograms[m.Name] = histogram

	case Summary:
		summary := prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: p.namespace,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)

		if err := p.registry.Register(summary); err != nil {
			return err
		}

		p.summaries[m.Name] = summary
	}

	return nil
}

// GetMetricsHandler returns an http.Handler serving the scrape endpoint.
func (p *PrometheusCollector) GetMetricsHandler() interface{} {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		DisableCompression: true,
	})
}
