package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/guygriffiths/covtiles/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(builder *usecase.Builder) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(builder)

	// API v1 routes.
	v1 := router.Group("/v1")
	arrays := v1.Group("/arrays")
	arrays.GET("", handler.ListArrays)
	arrays.GET("/data", handler.GetData)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
