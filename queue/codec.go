package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Codec converts typed payloads to and from the string bodies carried on the
// wire. Implementations must be safe for concurrent use. The context is
// passed through so codecs that call out, such as the encrypted and offload
// codecs, can honor deadlines.
type Codec[T any] interface {
	Encode(ctx context.Context, payload T) (string, error)
	Decode(ctx context.Context, body string) (T, error)
}

// JSONCodec marshals payloads as JSON. It is the default codec.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(ctx context.Context, payload T) (string, error) {
	jsonBytes, err := json.Marshal(payload)

	if err != nil {
		return "", fmt.Errorf("failed to marshal payload to json: %s", err)
	}

	return string(jsonBytes), nil
}

func (JSONCodec[T]) Decode(ctx context.Context, body string) (T, error) {
	var payload T

	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload from json: %s", err)
	}

	return payload, nil
}

// StringCodec passes string payloads through untouched.
type StringCodec struct{}

func (StringCodec) Encode(ctx context.Context, payload string) (string, error) {
	return payload, nil
}

func (StringCodec) Decode(ctx context.Context, body string) (string, error) {
	return body, nil
}
