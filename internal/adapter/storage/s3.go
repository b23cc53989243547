package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/hivecrm/contactbook/internal/config"
)

// ImageStore uploads avatar images and returns a publicly reachable URL.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// S3ImageStore implements ImageStore on an S3 (or S3-compatible) bucket.
type S3ImageStore struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

var _ ImageStore = (*S3ImageStore)(nil)

// NewS3ImageStore builds a store from the ambient AWS credential chain.
func NewS3ImageStore(ctx context.Context, cfg appconfig.Config) (*S3ImageStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3ImageStore{
		client:   client,
		bucket:   cfg.S3Bucket,
		region:   cfg.S3Region,
		endpoint: cfg.S3Endpoint,
	}, nil
}

// Upload puts the object and returns its public URL.
func (s *S3ImageStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.objectURL(key), nil
}

func (s *S3ImageStore) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
