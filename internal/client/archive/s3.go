// Package archive uploads audit exports to an S3-compatible bucket
// (AWS S3 or MinIO).
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfgpkg "github.com/dmitrijs2005/coevo/internal/client/config"
	"github.com/dmitrijs2005/coevo/internal/logging"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("archive bucket is not configured")

var (
	loadAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	now = time.Now
)

// S3Uploader puts objects into one bucket.
type S3Uploader struct {
	bucket string
	client *s3.Client
	log    logging.Logger
}

// NewS3Uploader builds an uploader from the archive section of the config.
// Static credentials are used when an access key is set; otherwise the
// default AWS credential chain applies.
func NewS3Uploader(ctx context.Context, ac cfgpkg.ArchiveConfig, log logging.Logger) (*S3Uploader, error) {
	if !ac.Enabled() {
		return nil, ErrNotConfigured
	}

	opts := []func(*config.LoadOptions) error{}
	if ac.Region != "" {
		opts = append(opts, config.WithRegion(ac.Region))
	}
	if ac.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ac.AccessKey, ac.SecretKey, "")))
	}

	cfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		if ac.Endpoint != "" {
			o.BaseEndpoint = aws.String(ac.Endpoint)
			// MinIO does not serve virtual-hosted buckets by default.
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{bucket: ac.Bucket, client: client, log: logging.OrNop(log)}, nil
}

// ObjectKey returns a unique key for name under a dated prefix.
func ObjectKey(name string) string {
	d := now().UTC()
	return fmt.Sprintf("audit/%d/%02d/%02d/%s-%s", d.Year(), d.Month(), d.Day(), uuid.New(), path.Base(name))
}

// Upload stores r under a fresh key and returns the key.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(name)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/zip"),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	if err := putObject(u.client, ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	u.log.Info(ctx, "archived object", "bucket", u.bucket, "key", key, "bytes", size)
	return key, nil
}
