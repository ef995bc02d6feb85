package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/finch-technologies/go-queue/storage/s3"
)

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec[order]{}
	ctx := context.Background()

	tests := []struct {
		name    string
		payload order
	}{
		{
			name:    "zero value",
			payload: order{},
		},
		{
			name:    "simple payload",
			payload: order{Id: "order-42", Total: 1995},
		},
		{
			name:    "unicode payload",
			payload: order{Id: "bestelling-日本語-héllo", Total: -1},
		},
		{
			name:    "large payload",
			payload: order{Id: strings.Repeat("x", 250*1024)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := codec.Encode(ctx, tt.payload)
			if err != nil {
				t.Fatalf("Encode() returned unexpected error: %v", err)
			}

			decoded, err := codec.Decode(ctx, body)
			if err != nil {
				t.Fatalf("Decode() returned unexpected error: %v", err)
			}

			if decoded != tt.payload {
				t.Errorf("round trip mismatch: got %+v, want %+v", decoded, tt.payload)
			}
		})
	}
}

func TestJSONCodecDecodeError(t *testing.T) {
	codec := JSONCodec[order]{}

	_, err := codec.Decode(context.Background(), "{not json")
	if err == nil {
		t.Error("expected error but got none")
	}
}

func TestStringCodec(t *testing.T) {
	codec := StringCodec{}
	ctx := context.Background()

	tests := []string{"", "order-42", "héllo wörld 日本語", strings.Repeat("y", 64*1024)}

	for _, payload := range tests {
		body, err := codec.Encode(ctx, payload)
		if err != nil {
			t.Fatalf("Encode() returned unexpected error: %v", err)
		}
		if body != payload {
			t.Errorf("Encode() = %q, want %q", body, payload)
		}

		decoded, err := codec.Decode(ctx, body)
		if err != nil {
			t.Fatalf("Decode() returned unexpected error: %v", err)
		}
		if decoded != payload {
			t.Errorf("Decode() = %q, want %q", decoded, payload)
		}
	}
}

// fakeCipher prefixes instead of encrypting, enough to verify wiring.
type fakeCipher struct {
	encrypts int
	decrypts int
}

func (c *fakeCipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	c.encrypts++
	return "enc:" + plaintext, nil
}

func (c *fakeCipher) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	c.decrypts++

	plaintext, found := strings.CutPrefix(ciphertext, "enc:")
	if !found {
		return "", errors.New("not a ciphertext")
	}

	return plaintext, nil
}

func TestEncryptedCodec(t *testing.T) {
	cipher := &fakeCipher{}
	codec := NewEncryptedCodec(JSONCodec[order]{}, cipher)
	ctx := context.Background()

	payload := order{Id: "order-42", Total: 100}

	body, err := codec.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode() returned unexpected error: %v", err)
	}

	if !strings.HasPrefix(body, "enc:") {
		t.Errorf("expected an encrypted body, got %q", body)
	}
	if cipher.encrypts != 1 {
		t.Errorf("expected 1 encrypt call, got %d", cipher.encrypts)
	}

	decoded, err := codec.Decode(ctx, body)
	if err != nil {
		t.Fatalf("Decode() returned unexpected error: %v", err)
	}
	if decoded != payload {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, payload)
	}
	if cipher.decrypts != 1 {
		t.Errorf("expected 1 decrypt call, got %d", cipher.decrypts)
	}
}

func TestEncryptedCodecDecryptError(t *testing.T) {
	codec := NewEncryptedCodec(JSONCodec[order]{}, &fakeCipher{})

	_, err := codec.Decode(context.Background(), `{"id":"plaintext"}`)
	if err == nil {
		t.Error("expected error decoding an unencrypted body")
	}
}

// The s3 storage client must plug into the offload codec
var _ ObjectStore = (*s3.S3Storage)(nil)

// fakeStore keeps offloaded bodies in memory.
type fakeStore struct {
	objects   map[string][]byte
	uploads   int
	downloads int
	uploadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Upload(ctx context.Context, file []byte, key string, options ...s3.UploadOptions) (string, error) {
	s.uploads++

	if s.uploadErr != nil {
		return "", s.uploadErr
	}

	key = "bucket-prefix/" + key
	s.objects[key] = file

	return key, nil
}

func (s *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.downloads++

	file, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}

	return file, nil
}

func TestOffloadCodecSmallBodyPassesThrough(t *testing.T) {
	store := newFakeStore()
	codec := NewOffloadCodec(JSONCodec[order]{}, store, 1024)
	ctx := context.Background()

	payload := order{Id: "order-42"}

	body, err := codec.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode() returned unexpected error: %v", err)
	}

	if body != `{"id":"order-42","total":0}` {
		t.Errorf("expected the plain body on the wire, got %q", body)
	}
	if store.uploads != 0 {
		t.Errorf("expected no uploads below the threshold, got %d", store.uploads)
	}

	decoded, err := codec.Decode(ctx, body)
	if err != nil {
		t.Fatalf("Decode() returned unexpected error: %v", err)
	}
	if decoded != payload {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, payload)
	}
	if store.downloads != 0 {
		t.Errorf("expected no downloads for an inline body, got %d", store.downloads)
	}
}

func TestOffloadCodecLargeBody(t *testing.T) {
	store := newFakeStore()
	codec := NewOffloadCodec(JSONCodec[order]{}, store, 64)
	ctx := context.Background()

	payload := order{Id: strings.Repeat("x", 200), Total: 3}

	body, err := codec.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode() returned unexpected error: %v", err)
	}

	if store.uploads != 1 {
		t.Fatalf("expected 1 upload, got %d", store.uploads)
	}
	if !strings.Contains(body, `"__offloaded":true`) {
		t.Errorf("expected a pointer body, got %q", body)
	}
	if len(body) >= 200 {
		t.Errorf("expected the wire body to shrink, got %d bytes", len(body))
	}

	decoded, err := codec.Decode(ctx, body)
	if err != nil {
		t.Fatalf("Decode() returned unexpected error: %v", err)
	}
	if decoded != payload {
		t.Error("round trip mismatch after offload")
	}
	if store.downloads != 1 {
		t.Errorf("expected 1 download, got %d", store.downloads)
	}
}

func TestOffloadCodecUploadError(t *testing.T) {
	store := newFakeStore()
	store.uploadErr = errors.New("bucket unavailable")
	codec := NewOffloadCodec(JSONCodec[order]{}, store, 8)

	_, err := codec.Encode(context.Background(), order{Id: "a large enough payload"})
	if err == nil {
		t.Error("expected error but got none")
	}
}

func TestOffloadCodecMissingObject(t *testing.T) {
	store := newFakeStore()
	codec := NewOffloadCodec(JSONCodec[order]{}, store, 8)

	_, err := codec.Decode(context.Background(), `{"__offloaded":true,"key":"gone"}`)
	if err == nil {
		t.Error("expected error but got none")
	}
}
