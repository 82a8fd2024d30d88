package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

// CustomerService is the customer logic used by CustomerHandler
type CustomerService interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Item, error)
	DeleteCustomer(ctx context.Context, id string) (string, error)
}

// CustomerHandler handles HTTP requests for customer operations
type CustomerHandler struct {
	service CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(service CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service: service,
	}
}

// ListCustomers handles GET /customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	customers, err := h.service.ListCustomers(ctx)
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to list customers", zap.Error(err))
		writeError(c, err)
		return
	}

	logger.Info("Customers listed", zap.Int("count", len(customers)))
	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id := c.Param("id")
	span.SetAttributes(attribute.String("customer.id", id))

	customer, err := h.service.GetCustomer(ctx, id)
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to get customer", zap.String("customer_id", id), zap.Error(err))
		writeError(c, err)
		return
	}

	logger.Info("Customer retrieved", zap.String("customer_id", id))
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// CreateCustomer handles POST /customers
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	var req domain.CreateCustomerRequest
	if err := bindJSON(c, &req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.Error("Invalid request", zap.Error(err))
		writeError(c, err)
		return
	}

	customer, err := h.service.CreateCustomer(ctx, req)
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to create customer", zap.Error(err))
		writeError(c, err)
		return
	}

	logger.Info("Customer created", zap.String("customer_id", customer.CustomerID))
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

// UpdateCustomer handles PUT /customers/:id
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id := c.Param("id")
	span.SetAttributes(attribute.String("customer.id", id))

	var req domain.UpdateCustomerRequest
	if err := bindJSON(c, &req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.Error("Invalid request", zap.String("customer_id", id), zap.Error(err))
		writeError(c, err)
		return
	}

	updated, err := h.service.UpdateCustomer(ctx, id, req)
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to update customer", zap.String("customer_id", id), zap.Error(err))
		writeError(c, err)
		return
	}

	logger.Info("Customer updated", zap.String("customer_id", id))
	c.JSON(http.StatusOK, gin.H{"customer": updated})
}

// DeleteCustomer handles DELETE /customers/:id
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	logger := middleware.GetLoggerFromGinContext(c)

	id := c.Param("id")
	span.SetAttributes(attribute.String("customer.id", id))

	deleted, err := h.service.DeleteCustomer(ctx, id)
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to delete customer", zap.String("customer_id", id), zap.Error(err))
		writeError(c, err)
		return
	}

	logger.Info("Customer deleted", zap.String("customer_id", deleted))
	c.JSON(http.StatusOK, gin.H{"customer": gin.H{"customerId": deleted}})
}

func startRequestSpan(c *gin.Context) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
}
