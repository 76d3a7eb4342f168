package v1

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/version"
	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

type HealthHandler struct {
	service   gateway.Service
	startTime time.Time
	update    atomic.Pointer[api.UpdateStatus]
}

func NewHealthHandler(service gateway.Service, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		service:   service,
		startTime: startTime,
	}
}

// SetUpdate records the outcome of a background release check.
func (h *HealthHandler) SetUpdate(u *version.Update) {
	if u == nil {
		return
	}
	h.update.Store(&api.UpdateStatus{Latest: u.Latest, Available: u.Available})
}

// Health returns the health status, uptime and registered providers.
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	kinds := h.service.Providers()
	providers := make([]string, 0, len(kinds))
	for _, k := range kinds {
		providers = append(providers, k.String())
	}

	c.JSON(http.StatusOK, api.Health{
		Status:    "healthy",
		Version:   version.AppVersion,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		StartedAt: h.startTime.UTC(),
		Providers: providers,
		Update:    h.update.Load(),
	})
}
