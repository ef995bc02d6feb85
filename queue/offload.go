package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finch-technologies/go-queue/storage/s3"
	"github.com/google/uuid"
)

// DefaultOffloadThreshold is the body size above which payloads are moved to
// object storage. SQS caps message size at 256KB.
const DefaultOffloadThreshold = 256 * 1024

// ObjectStore stores oversized message bodies outside the queue. s3.S3Storage
// satisfies this interface.
type ObjectStore interface {
	Upload(ctx context.Context, file []byte, key string, options ...s3.UploadOptions) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

type objectPointer struct {
	Offloaded bool   `json:"__offloaded"`
	Key       string `json:"key"`
}

// OffloadCodec replaces bodies at or above the threshold with a small JSON
// pointer to an object uploaded to the store. Smaller bodies pass through the
// inner codec untouched. Offloaded objects are not deleted on consume, bucket
// lifecycle rules are expected to expire them.
type OffloadCodec[T any] struct {
	inner     Codec[T]
	store     ObjectStore
	threshold int
}

func NewOffloadCodec[T any](inner Codec[T], store ObjectStore, threshold ...int) *OffloadCodec[T] {
	size := DefaultOffloadThreshold

	if len(threshold) > 0 && threshold[0] > 0 {
		size = threshold[0]
	}

	return &OffloadCodec[T]{
		inner:     inner,
		store:     store,
		threshold: size,
	}
}

func (c *OffloadCodec[T]) Encode(ctx context.Context, payload T) (string, error) {
	body, err := c.inner.Encode(ctx, payload)

	if err != nil {
		return "", err
	}

	if len(body) < c.threshold {
		return body, nil
	}

	key, err := c.store.Upload(ctx, []byte(body), fmt.Sprintf("payloads/%s", uuid.New().String()))

	if err != nil {
		return "", fmt.Errorf("failed to offload message body: %w", err)
	}

	pointer, err := json.Marshal(objectPointer{Offloaded: true, Key: key})

	if err != nil {
		return "", fmt.Errorf("failed to marshal payload to json: %s", err)
	}

	return string(pointer), nil
}

func (c *OffloadCodec[T]) Decode(ctx context.Context, body string) (T, error) {
	var pointer objectPointer

	if err := json.Unmarshal([]byte(body), &pointer); err == nil && pointer.Offloaded {
		file, err := c.store.Download(ctx, pointer.Key)

		if err != nil {
			var payload T
			return payload, fmt.Errorf("failed to fetch offloaded message body: %w", err)
		}

		body = string(file)
	}

	return c.inner.Decode(ctx, body)
}
