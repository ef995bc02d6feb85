package queue

import (
	"context"
	"fmt"
)

// Cipher encrypts and decrypts message bodies. The encryption/kms package
// provides an implementation backed by AWS KMS.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// EncryptedCodec encrypts the output of an inner codec so payloads are
// unreadable while they sit in the queue.
type EncryptedCodec[T any] struct {
	inner  Codec[T]
	cipher Cipher
}

func NewEncryptedCodec[T any](inner Codec[T], cipher Cipher) *EncryptedCodec[T] {
	return &EncryptedCodec[T]{inner: inner, cipher: cipher}
}

func (c *EncryptedCodec[T]) Encode(ctx context.Context, payload T) (string, error) {
	body, err := c.inner.Encode(ctx, payload)

	if err != nil {
		return "", err
	}

	ciphertext, err := c.cipher.Encrypt(ctx, body)

	if err != nil {
		return "", fmt.Errorf("failed to encrypt message body: %w", err)
	}

	return ciphertext, nil
}

func (c *EncryptedCodec[T]) Decode(ctx context.Context, body string) (T, error) {
	plaintext, err := c.cipher.Decrypt(ctx, body)

	if err != nil {
		var payload T
		return payload, fmt.Errorf("failed to decrypt message body: %w", err)
	}

	return c.inner.Decode(ctx, plaintext)
}
