package kms

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/finch-technologies/go-queue/utils"
)

type Config struct {
	Region string
	KeyId  string
}

// Encrypter encrypts and decrypts short strings with a KMS key. Ciphertexts
// are base64 encoded so they can travel inside message bodies.
type Encrypter struct {
	client *kms.Client
	keyId  string
}

func getConfig(config ...Config) Config {
	defaultConfig := Config{
		Region: utils.StringOrDefault(os.Getenv("AWS_REGION"), "af-south-1"),
		KeyId:  os.Getenv("KMS_KEY_ID"),
	}

	if len(config) == 0 {
		return defaultConfig
	}

	cfg := config[0]
	utils.MergeObjects(&cfg, defaultConfig)

	return cfg
}

func New(ctx context.Context, config ...Config) (*Encrypter, error) {
	cfg := getConfig(config...)

	if cfg.KeyId == "" {
		return nil, errors.New("kms key id is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))

	if err != nil {
		return nil, fmt.Errorf("failed to create KMS client: %w", err)
	}

	return &Encrypter{
		client: kms.NewFromConfig(awsCfg),
		keyId:  cfg.KeyId,
	}, nil
}

func (e *Encrypter) Encrypt(ctx context.Context, plaintext string) (string, error) {
	resp, err := e.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(e.keyId),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encrypt data: %w", err)
	}

	return base64.StdEncoding.EncodeToString(resp.CiphertextBlob), nil
}

func (e *Encrypter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode ciphertext: %w", err)
	}

	// NOTE: the key id is left out of the request so that messages encrypted
	// under an older key still decrypt after a key rotation, KMS picks the
	// right key from the ciphertext itself
	req := &kms.DecryptInput{
		CiphertextBlob: data,
	}

	resp, err := e.client.Decrypt(ctx, req)

	if err != nil {
		return "", fmt.Errorf("failed to decrypt data: %w", err)
	}

	return string(resp.Plaintext), nil
}
