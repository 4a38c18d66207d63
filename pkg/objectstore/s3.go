package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/certforge/certforge/internal/apperr"
)

// S3Store adapts an S3-compatible object store (AWS S3 or a MinIO dev
// instance reached via a custom endpoint) to the Store contract.
type S3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	defaultTTL    time.Duration
}

// S3Config configures NewS3Store. Endpoint is optional — set it to point
// at a MinIO/dev S3-compatible endpoint; leave empty for real AWS S3.
type S3Config struct {
	Region         string
	Endpoint       string
	PathStyle      bool
	DefaultTTL     time.Duration
}

// NewS3Store builds an S3Store from cfg, loading AWS credentials from the
// standard credential chain (env vars, shared config, IAM role).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}

	return &S3Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		defaultTTL:    defaultTTL,
	}, nil
}

// Put uploads data under key in bucket.
func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %s/%s: %w", bucket, key, apperr.ErrStorageTransient)
	}
	return nil
}

// Get fetches the object at key in bucket. A missing key surfaces as
// apperr.ErrNotFound; every other failure is retryable.
func (s *S3Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s/%s: %w", bucket, key, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("getting object %s/%s: %w", bucket, key, apperr.ErrStorageTransient)
	}
	return out.Body, nil
}

// Exists reports whether key exists in bucket.
func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking object %s/%s: %w", bucket, key, apperr.ErrStorageTransient)
	}
	return true, nil
}

// Delete removes key from bucket. Deleting an absent key is not an error.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s/%s: %w", bucket, key, apperr.ErrStorageTransient)
	}
	return nil
}

// Presign returns a time-limited GET URL for key, capped to 7 days.
func (s *S3Store) Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	ttl = clampTTL(ttl, s.defaultTTL)

	out, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presigning object %s/%s: %w", bucket, key, apperr.ErrStorageTransient)
	}
	return out.URL, nil
}

// EnsureBucket creates bucket if it does not already exist. The store's
// other methods do not call it; internal/app calls it once at startup.
func (s *S3Store) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("checking bucket %s: %w", bucket, apperr.ErrStorageTransient)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", bucket, apperr.ErrStorageTransient)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
