package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

// Response bodies for failed requests.
const (
	msgBadRequest      = "Bad request"
	msgCustomerMissing = "Customer does not exist"
	msgCustomerExists  = "Customer already exists."
)

// statusFor maps a domain error to its HTTP status and body.
// Anything unclassified is a bad request.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, msgCustomerMissing
	case errors.Is(err, domain.ErrCustomerExists):
		return http.StatusMethodNotAllowed, msgCustomerExists
	default:
		return http.StatusBadRequest, msgBadRequest
	}
}

// writeError marks the server span failed and writes the mapped response.
func writeError(c *gin.Context, err error) {
	middleware.RecordError(c.Request.Context(), err)
	status, msg := statusFor(err)
	c.JSON(status, gin.H{"error": msg})
}
