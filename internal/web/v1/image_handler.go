package v1

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

// uploadField is the multipart form field carrying the image.
const uploadField = "file"

// ImageService is the profile image logic used by ImageHandler
type ImageService interface {
	ListImages(ctx context.Context) ([]string, error)
	UploadImage(ctx context.Context, filename string, data io.Reader, size int64, contentType string) (string, error)
}

// ImageHandler handles HTTP requests for profile images
type ImageHandler struct {
	service ImageService
}

// NewImageHandler creates a new image handler
func NewImageHandler(service ImageService) *ImageHandler {
	return &ImageHandler{service: service}
}

// ListImages handles GET /customers/images
func (h *ImageHandler) ListImages(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	urls, err := h.service.ListImages(ctx)
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to list images", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": urls})
}

// UploadImage handles POST /customers/upload (multipart field "file")
func (h *ImageHandler) UploadImage(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	header, err := c.FormFile(uploadField)
	if err != nil {
		err = fmt.Errorf("read form file %q: %w: %w", uploadField, domain.ErrBadRequest, err)
		span.RecordError(err)
		logger.Error("Invalid upload", zap.Error(err))
		writeError(c, err)
		return
	}
	span.SetAttributes(attribute.String("image.name", header.Filename), attribute.Int64("image.size", header.Size))

	file, err := header.Open()
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to open upload", zap.Error(err))
		writeError(c, err)
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(ctx, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to upload image", zap.String("filename", header.Filename), zap.Error(err))
		writeError(c, err)
		return
	}

	logger.Info("Image uploaded", zap.String("filename", header.Filename))
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}
