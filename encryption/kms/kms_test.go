package kms

import (
	"context"
	"testing"

	"github.com/finch-technologies/go-queue/queue"
)

// The encrypter must plug into the queue's encrypted codec
var _ queue.Cipher = (*Encrypter)(nil)

func TestConfig(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("KMS_KEY_ID", "")

	tests := []struct {
		name     string
		config   []Config
		expected Config
	}{
		{
			name:   "no config falls back to defaults",
			config: []Config{},
			expected: Config{
				Region: "af-south-1",
				KeyId:  "",
			},
		},
		{
			name: "custom config",
			config: []Config{
				{
					Region: "eu-west-1",
					KeyId:  "alias/payments",
				},
			},
			expected: Config{
				Region: "eu-west-1",
				KeyId:  "alias/payments",
			},
		},
		{
			name: "partial config keeps region default",
			config: []Config{
				{
					KeyId: "alias/payments",
				},
			},
			expected: Config{
				Region: "af-south-1",
				KeyId:  "alias/payments",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := getConfig(tt.config...)

			if cfg.Region != tt.expected.Region {
				t.Errorf("expected region %s, got %s", tt.expected.Region, cfg.Region)
			}
			if cfg.KeyId != tt.expected.KeyId {
				t.Errorf("expected key id %s, got %s", tt.expected.KeyId, cfg.KeyId)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Setenv("KMS_KEY_ID", "")

	t.Run("missing key id", func(t *testing.T) {
		_, err := New(context.Background())
		if err == nil {
			t.Error("expected error but got none")
		}
	})

	t.Run("valid config", func(t *testing.T) {
		enc, err := New(context.Background(), Config{KeyId: "alias/payments"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if enc == nil {
			t.Error("expected non-nil encrypter")
		}
	})
}
