package queue

import (
	"context"

	"github.com/finch-technologies/go-queue/metrics"
)

const (
	metricEnqueued        = "queue_messages_enqueued_total"
	metricDequeued        = "queue_messages_dequeued_total"
	metricConsumed        = "queue_messages_consumed_total"
	metricDeleteFailures  = "queue_delete_failures_total"
	metricHandlerFailures = "queue_handler_failures_total"
	metricReceiveDuration = "queue_receive_duration_seconds"
)

// RegisterMetrics registers the queue metric definitions on the collector.
// Call it once per collector before constructing queues that share it.
func RegisterMetrics(collector metrics.Collector) error {
	return collector.RegisterCustomMetrics(
		metrics.CustomMetric{
			Name:        metricEnqueued,
			Description: "Messages successfully enqueued",
			Type:        metrics.Counter,
			Labels:      []string{"queue"},
		},
		metrics.CustomMetric{
			Name:        metricDequeued,
			Description: "Messages received from the queue",
			Type:        metrics.Counter,
			Labels:      []string{"queue"},
		},
		metrics.CustomMetric{
			Name:        metricConsumed,
			Description: "Messages deleted after successful processing",
			Type:        metrics.Counter,
			Labels:      []string{"queue"},
		},
		metrics.CustomMetric{
			Name:        metricDeleteFailures,
			Description: "Message deletions that failed and were left to redeliver",
			Type:        metrics.Counter,
			Labels:      []string{"queue"},
		},
		metrics.CustomMetric{
			Name:        metricHandlerFailures,
			Description: "Listen handler invocations that returned an error or panicked",
			Type:        metrics.Counter,
			Labels:      []string{"queue"},
		},
		metrics.CustomMetric{
			Name:        metricReceiveDuration,
			Description: "Receive round trip duration in seconds",
			Type:        metrics.Histogram,
			Labels:      []string{"queue", "status"},
			Buckets:     []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
	)
}

func (q *Queue[T]) count(ctx context.Context, name string, value float64) {
	if q.collector == nil {
		return
	}

	q.collector.IncrementCounter(ctx, name, map[string]string{"queue": q.name}, value)
}

func (q *Queue[T]) observe(ctx context.Context, name string, labels map[string]string, value float64) {
	if q.collector == nil {
		return
	}

	q.collector.ObserveHistogram(ctx, name, labels, value)
}
