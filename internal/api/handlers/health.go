package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/aideas-relay/internal/llm"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/gin-gonic/gin"
)

// ProviderNames resolves a backend to its provider
type ProviderNames interface {
	Provider(backend models.Backend) (llm.Provider, error)
}

// HealthHandler reports liveness and the configured backend mapping
type HealthHandler struct {
	backends map[string]string
}

func NewHealthHandler(providers ProviderNames) *HealthHandler {
	backends := make(map[string]string, len(models.AllBackends))
	for _, backend := range models.AllBackends {
		if provider, err := providers.Provider(backend); err == nil {
			backends[string(backend)] = provider.Name()
		}
	}
	return &HealthHandler{backends: backends}
}

// HealthCheck returns the health status of the relay
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"backends": h.backends,
	})
}
