package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sorenhq/llmgate/internal/gateway"
)

type HealthHandler struct {
	service gateway.Service
}

func NewHealthHandler(service gateway.Service) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health serves GET /health with per-provider availability.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"requests_processed": h.service.RequestsProcessed(),
		"providers":          h.service.Health(),
	})
}
