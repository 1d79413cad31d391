package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sorenhq/llmgate/internal/gateway"
)

type ModelHandler struct {
	service gateway.Service
}

func NewModelHandler(service gateway.Service) *ModelHandler {
	return &ModelHandler{service: service}
}

type modelEntry struct {
	ID           string   `json:"id"`
	Object       string   `json:"object"`
	OwnedBy      string   `json:"owned_by"`
	Name         string   `json:"name,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// List serves GET /v1/models in the openai listing shape, which both
// client families understand in practice.
func (h *ModelHandler) List(c *gin.Context) {
	models, err := h.service.Models(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]modelEntry, 0, len(models))
	for _, m := range models {
		data = append(data, modelEntry{
			ID:           m.ID,
			Object:       "model",
			OwnedBy:      m.Provider,
			Name:         m.Name,
			Capabilities: m.Capabilities,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
	})
}
