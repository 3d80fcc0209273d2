package handler

import (
	"net/http"

	"github.com/dshaw/letl-go/internal/health"
	"github.com/gin-gonic/gin"
)

// HealthHandler exposes liveness and readiness over HTTP.
type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Liveness reports whether the process is running at all.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.Liveness(c.Request.Context()))
}

// Readiness reports whether every dependency (the database) is reachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.checker.Readiness(c.Request.Context())
	status := http.StatusOK
	if result.Status != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}
