package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joseaugf/cop320-cw/pkg/chaos/infra"
)

// ChaosMetricsHandler serves the chaos metrics snapshot of a business
// service's simulator.
type ChaosMetricsHandler struct {
	service   string
	simulator *infra.Simulator
}

func NewChaosMetricsHandler(service string, simulator *infra.Simulator) *ChaosMetricsHandler {
	return &ChaosMetricsHandler{service: service, simulator: simulator}
}

func (h *ChaosMetricsHandler) Register(r gin.IRouter) {
	r.GET("/chaos/metrics", h.get)
}

func (h *ChaosMetricsHandler) get(c *gin.Context) {
	snapshot := h.simulator.SystemMetrics()
	c.JSON(http.StatusOK, gin.H{
		"service":        h.service,
		"timestamp":      snapshot.Timestamp,
		"system_metrics": snapshot,
	})
}
