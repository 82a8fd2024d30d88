package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const healthMessage = "This a health check. Customer Management Service is up and running."

// RegisterRoutes mounts the customer API on r
func RegisterRoutes(r gin.IRouter, customers *CustomerHandler, images *ImageHandler) {
	r.GET("/", Health)

	group := r.Group("/customers")
	{
		group.GET("", customers.ListCustomers)
		group.POST("", customers.CreateCustomer)
		group.GET("/images", images.ListImages)
		group.POST("/upload", images.UploadImage)
		group.GET("/:id", customers.GetCustomer)
		group.PUT("/:id", customers.UpdateCustomer)
		group.DELETE("/:id", customers.DeleteCustomer)
	}
}

// Health handles GET /
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": healthMessage})
}
