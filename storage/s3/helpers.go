package s3

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/finch-technologies/go-queue/utils"
)

func getConfig(config ...S3Config) (*S3Config, error) {
	defaultConfig := S3Config{
		Region: utils.StringOrDefault(os.Getenv("S3_REGION"), "af-south-1"),
	}

	if len(config) == 0 {
		return nil, errors.New("no config provided")
	}

	cfg := config[0]

	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	utils.MergeObjects(&cfg, defaultConfig)

	return &cfg, nil
}

func getUploadOptions(options ...UploadOptions) UploadOptions {
	defaultOptions := UploadOptions{
		ReturnType:      S3ReturnTypeKey,
		PresignedUrlTTL: 30 * time.Minute,
		Metadata:        map[string]string{},
	}

	if len(options) == 0 {
		return defaultOptions
	}

	opts := options[0]

	// Apply defaults for zero values manually to avoid MergeObjects issue with maps
	if opts.ReturnType == "" {
		opts.ReturnType = defaultOptions.ReturnType
	}
	if opts.PresignedUrlTTL == 0 {
		opts.PresignedUrlTTL = defaultOptions.PresignedUrlTTL
	}
	if opts.Metadata == nil {
		opts.Metadata = defaultOptions.Metadata
	}

	return opts
}

// IsS3URL reports whether raw points at an S3 object, either via the s3://
// scheme or one of the amazonaws.com URL styles.
func IsS3URL(raw string) bool {
	u, err := url.Parse(raw)

	if err != nil {
		return false
	}

	switch u.Scheme {
	case "s3":
		return true
	case "http", "https":
		return isS3Host(u.Host)
	}

	return false
}

// ParseS3URL extracts the bucket and object key from an S3 URL. It accepts
// s3://bucket/key, virtual hosted style (bucket.s3.region.amazonaws.com/key)
// and path style (s3.region.amazonaws.com/bucket/key) URLs.
func ParseS3URL(raw string) (string, string, error) {
	u, err := url.Parse(raw)

	if err != nil {
		return "", "", fmt.Errorf("failed to parse S3 URL %q: %v", raw, err)
	}

	var bucket, key string

	switch u.Scheme {
	case "s3":
		bucket = u.Host
		key = strings.TrimPrefix(u.Path, "/")
	case "http", "https":
		if !isS3Host(u.Host) {
			return "", "", fmt.Errorf("not an S3 URL: %s", raw)
		}

		host := strings.TrimSuffix(u.Host, ".amazonaws.com")

		if idx := strings.LastIndex(host, ".s3"); idx > 0 {
			// Virtual hosted style, the bucket precedes the s3 host label
			bucket = host[:idx]
			key = strings.TrimPrefix(u.Path, "/")
		} else {
			// Path style, the bucket is the first path segment
			bucket, key, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		}
	default:
		return "", "", fmt.Errorf("not an S3 URL: %s", raw)
	}

	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("S3 URL %q is missing a bucket or key", raw)
	}

	return bucket, key, nil
}

func isS3Host(host string) bool {
	if !strings.HasSuffix(host, ".amazonaws.com") {
		return false
	}

	for _, label := range strings.Split(host, ".") {
		if label == "s3" || strings.HasPrefix(label, "s3-") {
			return true
		}
	}

	return false
}
