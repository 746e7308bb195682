// Package api exposes the HTTP surface of the fault-injection control
// plane: flag CRUD plus the chaos metrics snapshot.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/joseaugf/cop320-cw/pkg/flags/store"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/joseaugf/cop320-cw/pkg/metrics"
	"github.com/joseaugf/cop320-cw/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

// FlagHandler serves the flag lifecycle endpoints backed by the flag store.
type FlagHandler struct {
	store *store.Store
}

func NewFlagHandler(st *store.Store) *FlagHandler {
	return &FlagHandler{store: st}
}

func (h *FlagHandler) Register(r gin.IRouter) {
	r.GET("/api/flags", h.list)
	r.GET("/api/flags/:name", h.get)
	r.PUT("/api/flags/:name", h.update)
	r.POST("/api/flags/reset", h.reset)
}

func (h *FlagHandler) list(c *gin.Context) {
	all, err := h.store.GetAll(c.Request.Context())
	if err != nil {
		log.Errorf("unable to list flags: %v", err)
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *FlagHandler) get(c *gin.Context) {
	name := c.Param("name")
	flag, err := h.store.Get(c.Request.Context(), name)
	if err != nil {
		log.Errorf("unable to get flag '%v': %v", name, err)
		WriteError(c, err)
		return
	}
	if flag == nil {
		WriteError(c, cerrors.FlagNotFound{Name: name})
		return
	}
	c.JSON(http.StatusOK, flag)
}

// update validates the body against the path name, requires the flag to
// already exist (the catalog is closed), and persists via the store. Every
// applied change leaves an audit log line carrying the correlation ID.
func (h *FlagHandler) update(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()

	var body flags.FeatureFlag
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, cerrors.ErrorTypeValidation, "malformed flag body: "+err.Error())
		return
	}
	if body.Name != "" && body.Name != name {
		respondError(c, http.StatusBadRequest, cerrors.ErrorTypeValidation,
			"flag name in body does not match the path")
		return
	}

	existing, err := h.store.Get(ctx, name)
	if err != nil {
		log.Errorf("unable to read flag '%v' before update: %v", name, err)
		WriteError(c, err)
		return
	}
	if existing == nil {
		WriteError(c, cerrors.FlagNotFound{Name: name})
		return
	}

	body.Name = name
	if body.Description == "" {
		body.Description = existing.Description
	}
	if body.Config == nil {
		body.Config = flags.FlagConfig{}
	}

	if err := h.store.Set(ctx, name, &body); err != nil {
		WriteError(c, err)
		return
	}

	metrics.FlagUpdates.WithLabelValues(name).Inc()
	log.InfoWithValues("[Audit]: feature flag updated", logrus.Fields{
		"Flag":    name,
		"Enabled": body.Enabled,
		"TraceID": telemetry.CorrelationID(ctx),
	})
	c.JSON(http.StatusOK, body)
}

func (h *FlagHandler) reset(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.store.ResetAll(ctx); err != nil {
		log.Errorf("unable to reset flags: %v", err)
		WriteError(c, err)
		return
	}

	metrics.FlagResets.Inc()
	log.InfoWithValues("[Audit]: feature flags reset to defaults", logrus.Fields{
		"TraceID": telemetry.CorrelationID(ctx),
	})
	c.JSON(http.StatusOK, gin.H{
		"message":   "feature flags reset to defaults",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
