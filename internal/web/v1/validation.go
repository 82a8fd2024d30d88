package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/duynhne/customer-service/internal/core/domain"
)

// bindJSON decodes the request body into obj. Decoding failures (malformed JSON,
// wrong value types) are reported as domain.ErrBadRequest so they map to the generic
// 400 response; the raw decoder error is kept in the chain for logging only.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindWith(obj, binding.JSON); err != nil {
		return fmt.Errorf("decode request body: %w: %w", domain.ErrBadRequest, err)
	}
	return nil
}
