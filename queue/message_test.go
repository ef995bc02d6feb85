package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finch-technologies/go-queue/queue/types"
)

func dequeueMessage(t *testing.T, q *Queue[order]) *Message[order] {
	t.Helper()

	message, err := q.DequeueOne(context.Background())
	if err != nil {
		t.Fatalf("DequeueOne() returned unexpected error: %v", err)
	}
	if message == nil {
		t.Fatal("expected a message")
	}

	return message
}

func TestConsumeDeletesOnce(t *testing.T) {
	driver := newFakeDriver()
	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		return []types.ReceivedMessage{rawMessage("m1", `{"id":"a"}`)}, nil
	}
	q := newTestQueue(t, driver)

	message := dequeueMessage(t, q)

	ctx := context.Background()
	message.Consume(ctx)
	message.Consume(ctx)
	message.Consume(ctx)

	if driver.deleteCalls != 1 {
		t.Errorf("expected exactly 1 delete call, got %d", driver.deleteCalls)
	}
	if len(driver.deleted) != 1 || driver.deleted[0] != "rh-m1" {
		t.Errorf("expected deletion of rh-m1, got %v", driver.deleted)
	}
}

func TestConsumeFailureSwallowed(t *testing.T) {
	driver := newFakeDriver()
	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		return []types.ReceivedMessage{rawMessage("m1", `{"id":"a"}`)}, nil
	}
	driver.deleteErr = errors.New("delete exploded")
	q := newTestQueue(t, driver)

	message := dequeueMessage(t, q)

	// Consume has no error return, a failed delete only logs and the record
	// redelivers after its lock expires
	ctx := context.Background()
	message.Consume(ctx)

	// The failure used up the single attempt, it is not retried
	message.Consume(ctx)

	if driver.deleteCalls != 1 {
		t.Errorf("expected exactly 1 delete attempt, got %d", driver.deleteCalls)
	}
}

func TestConsumeBindsOwnReceipt(t *testing.T) {
	deliveries := []types.ReceivedMessage{
		{MessageId: "m1", ReceiptHandle: "rh-first", Body: `{"id":"a"}`},
		{MessageId: "m1", ReceiptHandle: "rh-second", Body: `{"id":"a"}`},
	}

	var next int

	driver := newFakeDriver()
	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		delivery := deliveries[next]
		next++

		return []types.ReceivedMessage{delivery}, nil
	}
	q := newTestQueue(t, driver)

	first := dequeueMessage(t, q)
	second := dequeueMessage(t, q)

	// Tampering with the exported field must not change what gets deleted,
	// the deletion closed over the receipt handle at construction
	first.ReceiptHandle = "tampered"

	ctx := context.Background()
	first.Consume(ctx)
	second.Consume(ctx)

	if len(driver.deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %d", len(driver.deleted))
	}
	if driver.deleted[0] != "rh-first" {
		t.Errorf("expected first envelope to delete rh-first, got %s", driver.deleted[0])
	}
	if driver.deleted[1] != "rh-second" {
		t.Errorf("expected second envelope to delete rh-second, got %s", driver.deleted[1])
	}
}

func TestConsumeUpdatesMetrics(t *testing.T) {
	collector := &fakeCollector{}

	driver := newFakeDriver()
	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		return []types.ReceivedMessage{rawMessage("m1", `{"id":"a"}`)}, nil
	}

	q, err := New(context.Background(), "orders", Config[order]{
		Client:    driver,
		Collector: collector,
	})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	message := dequeueMessage(t, q)
	message.Consume(context.Background())

	if collector.counterValue(metricDequeued) != 1 {
		t.Errorf("expected 1 dequeued count, got %v", collector.counterValue(metricDequeued))
	}
	if collector.counterValue(metricConsumed) != 1 {
		t.Errorf("expected 1 consumed count, got %v", collector.counterValue(metricConsumed))
	}
	if len(collector.histograms[metricReceiveDuration]) != 1 {
		t.Errorf("expected 1 receive duration observation, got %d", len(collector.histograms[metricReceiveDuration]))
	}
}
