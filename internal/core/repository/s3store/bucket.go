// Package s3store implements domain.BlobStore on Amazon S3.
package s3store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/customer-service/middleware"
)

const backend = "s3"

// API is the subset of *s3.Client used by Bucket.
type API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Bucket implements domain.BlobStore for a single S3 bucket
type Bucket struct {
	client API
	name   string
}

// NewBucket creates a bucket-scoped blob store
func NewBucket(client API, name string) *Bucket {
	return &Bucket{client: client, name: name}
}

// List returns every object key in the bucket, in listing order
func (b *Bucket) List(ctx context.Context) (keys []string, err error) {
	ctx, span := middleware.StartSpan(ctx, "storage.list_objects", trace.WithAttributes(
		attribute.String("layer", "repository"),
		attribute.String("bucket", b.name),
	))
	defer span.End()
	defer func(start time.Time) { middleware.ObserveStorage(backend, "list", start, err) }(time.Now())

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("list objects in %q: %w", b.name, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	span.SetAttributes(attribute.Int("objects.count", len(keys)))
	return keys, nil
}

// Put uploads data under key; an existing object with the same key is overwritten
func (b *Bucket) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (err error) {
	ctx, span := middleware.StartSpan(ctx, "storage.put_object", trace.WithAttributes(
		attribute.String("layer", "repository"),
		attribute.String("bucket", b.name),
		attribute.String("object.key", key),
		attribute.Int64("object.size", size),
	))
	defer span.End()
	defer func(start time.Time) { middleware.ObserveStorage(backend, "put", start, err) }(time.Now())

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		span.RecordError(err)
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}
