package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/echefulouis/DeepFake/interfaces"
)

// S3Backend implements an archive backend using Amazon S3 or compatible services.
// Credentials come from the default AWS chain (environment, shared config,
// instance or task role) unless static keys are supplied.
type S3Backend struct {
	client      s3iface.S3API
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates a new S3 archive backend.
// endpoint is only needed for S3-compatible services such as MinIO, in which
// case path-style addressing is enabled.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("%w: empty bucket name", interfaces.ErrInvalidLocationURI)
	}

	uri := maskedLocationURI(bucketName, prefix, region, endpoint, accessKey)

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("aws session for bucket %s: %w", bucketName, err)
	}

	return NewS3BackendWithClient(s3.New(sess), bucketName, prefix, uri, log), nil
}

// NewS3BackendWithClient wraps an existing S3 client.
func NewS3BackendWithClient(client s3iface.S3API, bucketName, prefix, locationURI string, log *slog.Logger) *S3Backend {
	if log == nil {
		log = slog.Default()
	}
	prefix = strings.Trim(prefix, "/")
	if locationURI == "" {
		locationURI = fmt.Sprintf("s3://%s/%s", bucketName, prefix)
	}
	return &S3Backend{
		client:      client,
		bucketName:  bucketName,
		prefix:      prefix,
		log:         log,
		locationURI: locationURI,
	}
}

// Store uploads data to S3 under key with the given content type.
// Objects stay private; the archive is never served back from this service.
func (b *S3Backend) Store(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	objectKey := b.getObjectKey(key)

	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		b.log.Error("Failed to upload object to S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", objectKey),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored object in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available reports whether the bucket answers HeadBucket with the current credentials.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucketName)})
	if err != nil {
		b.log.Warn("Archive bucket not reachable", slog.String("bucket", b.bucketName), "err", err)
	}
	return err == nil
}

func (b *S3Backend) Name() string {
	return "s3-" + b.bucketName
}

func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

// getObjectKey prepends the backend prefix, if any, to the archive key.
func (b *S3Backend) getObjectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

// maskedLocationURI renders the backend location for logs, hiding the secret key.
func maskedLocationURI(bucket, prefix, region, endpoint, accessKey string) string {
	q := url.Values{}
	q.Set("region", region)
	if endpoint != "" {
		q.Set("endpoint", endpoint)
	}
	u := url.URL{Scheme: "s3", Host: bucket, Path: "/" + strings.Trim(prefix, "/"), RawQuery: q.Encode()}
	if accessKey != "" {
		u.User = url.UserPassword(accessKey, "***")
	}
	return u.String()
}
