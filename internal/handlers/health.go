package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/agentice/internal/config"
)

// HealthCheck reports liveness with the build version and environment.
func HealthCheck(cfg config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"version":     cfg.Version,
			"environment": cfg.Environment,
			"timestamp":   time.Now().UTC(),
		})
	}
}
