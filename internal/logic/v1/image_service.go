package v1

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

// ImageService manages customer profile images in a public bucket
type ImageService struct {
	store        domain.BlobStore
	bucket       string
	publicDomain string
}

// NewImageService creates an image service. Public URLs take the form
// https://{bucket}.{publicDomain}/{key}.
func NewImageService(store domain.BlobStore, bucket, publicDomain string) *ImageService {
	return &ImageService{
		store:        store,
		bucket:       bucket,
		publicDomain: publicDomain,
	}
}

// ListImages returns the public URL of every object in the bucket
func (s *ImageService) ListImages(ctx context.Context) ([]string, error) {
	ctx, span := middleware.StartSpan(ctx, "image.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	keys, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list images: %w", err)
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, s.PublicURL(key))
	}
	return urls, nil
}

// UploadImage stores the file under its original name, replacing any object with
// that name, and returns its public URL
func (s *ImageService) UploadImage(ctx context.Context, filename string, data io.Reader, size int64, contentType string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "image.upload", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("image.name", filename),
	))
	defer span.End()

	if filename == "" {
		return "", fmt.Errorf("upload image: empty filename: %w", domain.ErrBadRequest)
	}

	if err := s.store.Put(ctx, filename, data, size, contentType); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("upload image %q: %w", filename, err)
	}
	return s.PublicURL(filename), nil
}

// PublicURL builds the public address of an object key
func (s *ImageService) PublicURL(key string) string {
	u := url.URL{
		Scheme: "https",
		Host:   s.bucket + "." + s.publicDomain,
		Path:   "/" + key,
	}
	return u.String()
}
