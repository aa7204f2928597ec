package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

// S3Config holds the bucket configuration
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicURL       string // Optional CDN or bucket website in front of the bucket
}

// LoadS3Config loads S3 configuration from environment variables
func LoadS3Config() (*S3Config, error) {
	cfg := &S3Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     strings.TrimRight(env.GetEnv("S3_ENDPOINT_URL", ""), "/"),
		PublicURL:       strings.TrimRight(env.GetEnv("S3_PUBLIC_URL", ""), "/"),
	}

	if cfg.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required when STORAGE_DRIVER=s3")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required when STORAGE_DRIVER=s3")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required when STORAGE_DRIVER=s3")
	}
	return cfg, nil
}

// ObjectURL is the public URL of key.
func (c *S3Config) ObjectURL(key string) string {
	switch {
	case c.PublicURL != "":
		return c.PublicURL + "/" + key
	case c.EndpointURL != "":
		return fmt.Sprintf("%s/%s/%s", c.EndpointURL, c.BucketName, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.BucketName, c.Region, key)
	}
}

// S3Backend stores objects in a bucket.
type S3Backend struct {
	client *s3.Client
	cfg    *S3Config
}

// NewS3Backend creates the client and checks that the bucket is reachable.
func NewS3Backend(ctx context.Context, cfg *S3Config) (*S3Backend, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// MinIO and B2 only speak path-style
			o.UsePathStyle = true
		}
	})

	b := &S3Backend{client: client, cfg: cfg}
	if err := b.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Infof("[Storage] Using S3 bucket %s", cfg.BucketName)
	return b, nil
}

func (b *S3Backend) ensureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.BucketName)})
	if err == nil {
		return nil
	}
	if !env.IsDev() {
		return fmt.Errorf("bucket %s not accessible: %w", b.cfg.BucketName, err)
	}

	log.Warnf("[Storage] Bucket %s not found, attempting to create it", b.cfg.BucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(b.cfg.BucketName)}
	if b.cfg.EndpointURL == "" && b.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.cfg.Region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", b.cfg.BucketName, err)
	}
	return nil
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if cleanKey(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.BucketName),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"upload-source": "adgenie",
		},
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Debugf("[Storage] Uploaded s3://%s/%s (%d bytes)", b.cfg.BucketName, key, size)
	return nil
}

func (b *S3Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return out.Body, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (b *S3Backend) URL(key string) string {
	return b.cfg.ObjectURL(key)
}
