package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Storage struct {
	Client    *s3.Client
	Bucket    string
	KeyPrefix string
	Region    string
}

type S3Config struct {
	Bucket    string
	Region    string
	KeyPrefix string
}

func New(config ...S3Config) (*S3Storage, error) {
	cfg, err := getConfig(config...)

	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion(cfg.Region),
	)

	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	var client *s3.Client

	if os.Getenv("S3_DEBUG") == "true" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.ClientLogMode = aws.LogSigning | aws.LogRequest | aws.LogResponseWithBody
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Storage{
		Client:    client,
		Bucket:    cfg.Bucket,
		KeyPrefix: cfg.KeyPrefix,
		Region:    cfg.Region,
	}, nil
}

// Upload stores a file under the given key, prefixed with the configured
// KeyPrefix. The return value depends on ReturnType: the final object key,
// a presigned URL or the public object URL.
func (s *S3Storage) Upload(ctx context.Context, file []byte, key string, options ...UploadOptions) (string, error) {
	opts := getUploadOptions(options...)

	if s.KeyPrefix != "" {
		key = fmt.Sprintf("%s/%s", s.KeyPrefix, key)
	}

	input := &s3.PutObjectInput{
		Bucket:   &s.Bucket,
		Key:      &key,
		Body:     bytes.NewReader(file),
		Metadata: opts.Metadata,
	}

	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}

	if opts.FileSize > 0 {
		input.ContentLength = &opts.FileSize
	}

	_, err := s.Client.PutObject(ctx, input)

	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %v", err)
	}

	var result string

	switch opts.ReturnType {
	case S3ReturnTypePresignedUrl:
		result, err = s.GeneratePresignedURL(ctx, key, int(opts.PresignedUrlTTL.Minutes()))
		if err != nil {
			return "", fmt.Errorf("failed to generate presigned URL: %w", err)
		}
	case S3ReturnTypeUrl:
		result = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, key)
	case S3ReturnTypeKey:
		result = key
	}

	return result, nil
}

// GeneratePresignedURL generates a presigned URL for file access
func (s *S3Storage) GeneratePresignedURL(ctx context.Context, s3Key string, expirationMinutes int) (string, error) {
	presignClient := s3.NewPresignClient(s.Client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s3Key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Duration(expirationMinutes) * time.Minute
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

func (s *S3Storage) Download(ctx context.Context, key string) ([]byte, error) {
	output, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file from S3, %v", err)
	}
	defer output.Body.Close()

	return io.ReadAll(output.Body)
}

// DeleteFile deletes a file from S3
func (s *S3Storage) DeleteFile(ctx context.Context, s3Key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// FileExists checks if a file exists in S3
func (s *S3Storage) FileExists(ctx context.Context, s3Key string) (bool, error) {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if file exists in S3: %w", err)
	}

	return true, nil
}

// GetS3FileInfo fetches object metadata without downloading the body. The
// original file name is read from the original-name metadata entry when set.
func (s *S3Storage) GetS3FileInfo(ctx context.Context, bucket string, key string) (*FileInfo, error) {
	output, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info from S3: %w", err)
	}

	info := &FileInfo{
		Name:         path.Base(key),
		Size:         aws.ToInt64(output.ContentLength),
		ContentType:  aws.ToString(output.ContentType),
		LastModified: output.LastModified,
		S3Key:        key,
	}

	if name, ok := output.Metadata["original-name"]; ok {
		info.Name = name
	}

	return info, nil
}
