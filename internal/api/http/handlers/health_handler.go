package handlers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Dependency is an optional backing service probed by readiness checks.
type Dependency interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// SourceLocator locates the active export.
type SourceLocator interface {
	Path() string
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies map[string]Dependency
	source       SourceLocator
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, source SourceLocator, dependencies map[string]Dependency) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, source: source, dependencies: dependencies}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking configured dependencies. A missing export does
// not fail readiness since one can still be uploaded.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for name, dep := range h.dependencies {
		if dep == nil || !dep.Enabled() {
			depStatus[name] = "disabled"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			continue
		}
		depStatus[name] = "ok"
	}

	if h.source != nil {
		info, err := os.Stat(h.source.Path())
		switch {
		case errors.Is(err, fs.ErrNotExist):
			depStatus["source"] = "missing"
		case err != nil:
			depStatus["source"] = err.Error()
			ready = false
		default:
			depStatus["source"] = "ok, modified " + info.ModTime().UTC().Format(time.RFC3339)
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
