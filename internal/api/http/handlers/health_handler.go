package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyStatus reports the state of the in-memory policy table.
type PolicyStatus interface {
	Len() int
	LoadedAt() time.Time
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies map[string]Pinger
	policies     func() PolicyStatus
}

// NewHealthHandler returns a new handler instance. policies may be nil.
func NewHealthHandler(serviceName, version string, dependencies map[string]Pinger, policies func() PolicyStatus) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, dependencies: dependencies, policies: policies}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			continue
		}
		depStatus[name] = "ok"
	}

	if ready {
		body := fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		}
		if h.policies != nil {
			if snapshot := h.policies(); snapshot != nil {
				body["sla_policies"] = fiber.Map{"count": snapshot.Len(), "loaded_at": snapshot.LoadedAt()}
			}
		}
		return c.JSON(body)
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
