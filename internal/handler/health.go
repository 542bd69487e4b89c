package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"avatar-gateway/internal/config"
)

const serviceName = "avatar-gateway"

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}

// Status reports build and upstream details. The credential itself is never exposed.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":                "ok",
		"service":               serviceName,
		"version":               string(h.version),
		"upstream_url":          h.cfg.Upstream.BaseURL,
		"credential_configured": h.cfg.HasCredential(),
	})
}
