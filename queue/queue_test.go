package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/finch-technologies/go-queue/metrics"
	"github.com/finch-technologies/go-queue/queue/types"
)

type order struct {
	Id    string `json:"id"`
	Total int    `json:"total"`
}

type resolveCall struct {
	queue  string
	create bool
}

type receiveCall struct {
	size int
	lock time.Duration
}

// fakeDriver is an in-memory driver double. Behavior is overridden per test
// via the *Fn and *Err fields.
type fakeDriver struct {
	mu           sync.Mutex
	limit        int
	resolveCalls []resolveCall
	resolveFn    func(queue string, createIfMissing bool) (string, error)
	sent         []string
	sendErr      error
	batchCalls   [][]string
	receiveCalls []receiveCall
	receiveFn    func(size int, lock time.Duration) ([]types.ReceivedMessage, error)
	deleted      []string
	deleteCalls  int
	deleteErr    error
	countValue   int
	countErr     error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{limit: 10}
}

func (d *fakeDriver) Resolve(ctx context.Context, queue string, createIfMissing bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resolveCalls = append(d.resolveCalls, resolveCall{queue: queue, create: createIfMissing})

	if d.resolveFn != nil {
		return d.resolveFn(queue, createIfMissing)
	}

	return "https://sqs.example.com/000000000000/" + queue, nil
}

func (d *fakeDriver) Send(ctx context.Context, handle string, body string, options ...types.EnqueueOptions) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sendErr != nil {
		return "", d.sendErr
	}

	d.sent = append(d.sent, body)

	return fmt.Sprintf("msg-%d", len(d.sent)), nil
}

func (d *fakeDriver) SendBatch(ctx context.Context, handle string, bodies []string, options ...types.EnqueueOptions) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sendErr != nil {
		return nil, d.sendErr
	}

	d.batchCalls = append(d.batchCalls, bodies)

	ids := make([]string, len(bodies))
	for i, body := range bodies {
		d.sent = append(d.sent, body)
		ids[i] = fmt.Sprintf("msg-%d", len(d.sent))
	}

	return ids, nil
}

func (d *fakeDriver) Receive(ctx context.Context, handle string, batchSize int, lock time.Duration) ([]types.ReceivedMessage, error) {
	d.mu.Lock()
	d.receiveCalls = append(d.receiveCalls, receiveCall{size: batchSize, lock: lock})
	fn := d.receiveFn
	d.mu.Unlock()

	if fn != nil {
		return fn(batchSize, lock)
	}

	return nil, nil
}

func (d *fakeDriver) Delete(ctx context.Context, handle string, receiptHandle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deleteCalls++

	if d.deleteErr != nil {
		return d.deleteErr
	}

	d.deleted = append(d.deleted, receiptHandle)

	return nil
}

func (d *fakeDriver) Count(ctx context.Context, handle string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.countValue, d.countErr
}

func (d *fakeDriver) BatchLimit() int {
	return d.limit
}

func (d *fakeDriver) receiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.receiveCalls)
}

var _ metrics.Collector = (*fakeCollector)(nil)

type fakeCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
}

func (c *fakeCollector) IncrementCounter(ctx context.Context, name string, labels map[string]string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counters == nil {
		c.counters = map[string]float64{}
	}
	c.counters[name] += value
}

func (c *fakeCollector) SetGauge(ctx context.Context, name string, labels map[string]string, value float64) {
}

func (c *fakeCollector) ObserveHistogram(ctx context.Context, name string, labels map[string]string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.histograms == nil {
		c.histograms = map[string][]float64{}
	}
	c.histograms[name] = append(c.histograms[name], value)
}

func (c *fakeCollector) ObserveSummary(ctx context.Context, name string, labels map[string]string, value float64) {
	c.ObserveHistogram(ctx, name, labels, value)
}

func (c *fakeCollector) RegisterCustomMetrics(customMetrics ...metrics.CustomMetric) error {
	return nil
}

func (c *fakeCollector) GetMetricsHandler() interface{} {
	return nil
}

func (c *fakeCollector) counterValue(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counters[name]
}

func rawMessage(id, body string) types.ReceivedMessage {
	return types.ReceivedMessage{
		MessageId:     id,
		ReceiptHandle: "rh-" + id,
		Body:          body,
		ReceivedAt:    time.Now(),
	}
}

func newTestQueue(t *testing.T, driver *fakeDriver) *Queue[order] {
	t.Helper()

	q, err := New(context.Background(), "orders", Config[order]{Client: driver})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	return q
}

type failCodec struct{}

func (failCodec) Encode(ctx context.Context, payload order) (string, error) {
	return "", errors.New("encode exploded")
}

func (failCodec) Decode(ctx context.Context, body string) (order, error) {
	return order{}, errors.New("decode exploded")
}

func TestNewRequiresName(t *testing.T) {
	_, err := New(context.Background(), "", Config[order]{Client: newFakeDriver()})

	if err == nil {
		t.Error("expected error but got none")
	}
}

func TestNewResolvesOnce(t *testing.T) {
	driver := newFakeDriver()
	q := newTestQueue(t, driver)

	ctx := context.Background()

	if _, err := q.Enqueue(ctx, order{Id: "1"}); err != nil {
		t.Fatalf("Enqueue() returned unexpected error: %v", err)
	}
	if _, err := q.Enqueue(ctx, order{Id: "2"}); err != nil {
		t.Fatalf("Enqueue() returned unexpected error: %v", err)
	}
	if _, err := q.DequeueOne(ctx); err != nil {
		t.Fatalf("DequeueOne() returned unexpected error: %v", err)
	}

	if len(driver.resolveCalls) != 1 {
		t.Errorf("expected 1 resolve call, got %d", len(driver.resolveCalls))
	}
	if driver.resolveCalls[0].queue != "orders" {
		t.Errorf("expected resolve of queue orders, got %s", driver.resolveCalls[0].queue)
	}
	if driver.resolveCalls[0].create {
		t.Error("expected resolve without createIfMissing")
	}
}

func TestNewCreateIfMissing(t *testing.T) {
	driver := newFakeDriver()

	_, err := New(context.Background(), "orders", Config[order]{
		Client:          driver,
		CreateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	if len(driver.resolveCalls) != 1 {
		t.Fatalf("expected 1 resolve call, got %d", len(driver.resolveCalls))
	}
	if !driver.resolveCalls[0].create {
		t.Error("expected resolve with createIfMissing")
	}
}

func TestNewQueueUnavailable(t *testing.T) {
	driver := newFakeDriver()
	driver.resolveFn = func(queue string, createIfMissing bool) (string, error) {
		return "", types.ErrQueueUnavailable
	}

	_, err := New(context.Background(), "missing", Config[order]{Client: driver})

	if !errors.Is(err, ErrQueueUnavailable) {
		t.Errorf("expected ErrQueueUnavailable, got %v", err)
	}
}

func TestNewProviderError(t *testing.T) {
	cause := errors.New("connection refused")

	driver := newFakeDriver()
	driver.resolveFn = func(queue string, createIfMissing bool) (string, error) {
		return "", cause
	}

	_, err := New(context.Background(), "orders", Config[order]{Client: driver})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.Op != "resolve" {
		t.Errorf("expected op resolve, got %s", providerErr.Op)
	}
	if providerErr.Queue != "orders" {
		t.Errorf("expected queue orders, got %s", providerErr.Queue)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to survive unwrapping")
	}
}

func TestEnqueue(t *testing.T) {
	driver := newFakeDriver()
	q := newTestQueue(t, driver)

	id, err := q.Enqueue(context.Background(), order{Id: "order-42", Total: 100})

	if err != nil {
		t.Fatalf("Enqueue() returned unexpected error: %v", err)
	}
	if id != "msg-1" {
		t.Errorf("expected message id msg-1, got %s", id)
	}
	if len(driver.sent) != 1 {
		t.Fatalf("expected 1 sent body, got %d", len(driver.sent))
	}
	if driver.sent[0] != `{"id":"order-42","total":100}` {
		t.Errorf("unexpected body: %s", driver.sent[0])
	}
}

func TestEnqueueEncodeError(t *testing.T) {
	driver := newFakeDriver()

	q, err := New(context.Background(), "orders", Config[order]{
		Client: driver,
		Codec:  failCodec{},
	})
	if err != nil {
		t.Fatalf("New() returned unexpected error: %v", err)
	}

	_, err = q.Enqueue(context.Background(), order{Id: "1"})

	var enqueueErr *EnqueueError
	if !errors.As(err, &enqueueErr) {
		t.Fatalf("expected EnqueueError, got %v", err)
	}
	if len(driver.sent) != 0 {
		t.Errorf("expected no sends after encode failure, got %d", len(driver.sent))
	}
}

func TestEnqueueSendError(t *testing.T) {
	driver := newFakeDriver()
	driver.sendErr = errors.New("throttled")
	q := newTestQueue(t, driver)

	_, err := q.Enqueue(context.Background(), order{Id: "1"})

	var enqueueErr *EnqueueError
	if !errors.As(err, &enqueueErr) {
		t.Fatalf("expected EnqueueError, got %v", err)
	}
	if !errors.Is(err, driver.sendErr) {
		t.Error("expected wrapped send error to survive unwrapping")
	}
}

func TestEnqueueBatch(t *testing.T) {
	driver := newFakeDriver()
	q := newTestQueue(t, driver)

	payloads := make([]order, 25)
	for i := range payloads {
		payloads[i] = order{Id: fmt.Sprintf("order-%d", i)}
	}

	ids, err := q.EnqueueBatch(context.Background(), payloads)

	if err != nil {
		t.Fatalf("EnqueueBatch() returned unexpected error: %v", err)
	}
	if len(ids) != 25 {
		t.Errorf("expected 25 ids, got %d", len(ids))
	}

	sizes := make([]int, len(driver.batchCalls))
	for i, call := range driver.batchCalls {
		sizes[i] = len(call)
	}

	expected := []int{10, 10, 5}
	if len(sizes) != len(expected) {
		t.Fatalf("expected %d batch calls, got %d", len(expected), len(sizes))
	}
	for i, size := range expected {
		if sizes[i] != size {
			t.Errorf("expected batch %d of size %d, got %d", i, size, sizes[i])
		}
	}

	if driver.sent[0] != `{"id":"order-0","total":0}` {
		t.Errorf("unexpected first body: %s", driver.sent[0])
	}
	if driver.sent[24] != `{"id":"order-24","total":0}` {
		t.Errorf("unexpected last body: %s", driver.sent[24])
	}
}

func TestEnqueueBatchEmpty(t *testing.T) {
	driver := newFakeDriver()
	q := newTestQueue(t, driver)

	ids, err := q.EnqueueBatch(context.Background(), nil)

	if err != nil {
		t.Fatalf("EnqueueBatch() returned unexpected error: %v", err)
	}
	if ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
	if len(driver.batchCalls) != 0 {
		t.Errorf("expected no batch calls, got %d", len(driver.batchCalls))
	}
}

func TestDequeueOneEmpty(t *testing.T) {
	driver := newFakeDriver()
	q := newTestQueue(t, driver)

	message, err := q.DequeueOne(context.Background())

	if err != nil {
		t.Fatalf("DequeueOne() returned unexpected error: %v", err)
	}
	if message != nil {
		t.Errorf("expected nil message on empty poll, got %+v", message)
	}
	if driver.receiveCount() != 1 {
		t.Errorf("expected 1 receive call, got %d", driver.receiveCount())
	}
}

func TestDequeueOne(t *testing.T) {
	driver := newFakeDriver()
	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		return []types.ReceivedMessage{rawMessage("m1", `{"id":"order-42","total":7}`)}, nil
	}
	q := newTestQueue(t, driver)

	message, err := q.DequeueOne(context.Background(), types.DequeueOptions{LockDuration: 30 * time.Second})

	if err != nil {
		t.Fatalf("DequeueOne() returned unexpected error: %v", err)
	}
	if message == nil {
		t.Fatal("expected a message")
	}
	if message.MessageId != "m1" {
		t.Errorf("expected message id m1, got %s", message.MessageId)
	}
	if message.Payload.Id != "order-42" || message.Payload.Total != 7 {
		t.Errorf("unexpected payload: %+v", message.Payload)
	}

	driver.mu.Lock()
	call := driver.receiveCalls[0]
	driver.mu.Unlock()

	if call.size != 1 {
		t.Errorf("expected receive of size 1, got %d", call.size)
	}
	if call.lock != 30*time.Second {
		t.Errorf("expected lock of 30s, got %v", call.lock)
	}
}

func TestDequeueDecodeError(t *testing.T) {
	driver := newFakeDriver()
	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		return []types.ReceivedMessage{rawMessage("m1", "not json")}, nil
	}
	q := newTestQueue(t, driver)

	_, err := q.DequeueOne(context.Background())

	var dequeueErr *DequeueError
	if !errors.As(err, &dequeueErr) {
		t.Fatalf("expected DequeueError, got %v", err)
	}
}

func TestCount(t *testing.T) {
	driver := newFakeDriver()
	driver.countValue = 42
	q := newTestQueue(t, driver)

	count, err := q.Count(context.Background())

	if err != nil {
		t.Fatalf("Count() returned unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("Count() = %d, want 42", count)
	}
}

func TestCountError(t *testing.T) {
	driver := newFakeDriver()
	driver.countErr = errors.New("boom")
	q := newTestQueue(t, driver)

	_, err := q.Count(context.Background())

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.Op != "count" {
		t.Errorf("expected op count, got %s", providerErr.Op)
	}
}

func TestRoundTrip(t *testing.T) {
	driver := newFakeDriver()
	q := newTestQueue(t, driver)

	ctx := context.Background()
	sent := order{Id: "order-42", Total: 1995}

	if _, err := q.Enqueue(ctx, sent); err != nil {
		t.Fatalf("Enqueue() returned unexpected error: %v", err)
	}

	driver.receiveFn = func(size int, lock time.Duration) ([]types.ReceivedMessage, error) {
		driver.mu.Lock()
		defer driver.mu.Unlock()

		return []types.ReceivedMessage{rawMessage("m1", driver.sent[0])}, nil
	}

	message, err := q.DequeueOne(ctx)

	if err != nil {
		t.Fatalf("DequeueOne() returned unexpected error: %v", err)
	}
	if message.Payload != sent {
		t.Errorf("round trip mismatch: sent %+v, received %+v", sent, message.Payload)
	}
}
