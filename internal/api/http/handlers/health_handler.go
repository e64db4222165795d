package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classhub/subject-service/internal/persistence"
)

// probeTimeout bounds each dependency ping so a hung store cannot stall
// the readiness endpoint past the orchestrator's own probe deadline.
const probeTimeout = 2 * time.Second

// HealthHandler responds to liveness and readiness probes. Probe bodies
// name each dependency's state but never the underlying error: the
// endpoints are unauthenticated, so infrastructure details stay in the
// logs.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance. Redis is optional; a
// nil handle reports as disabled rather than failing readiness.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports whether the service can do real work: the account store
// must answer, and the token deny-list only when it is configured at all.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
	defer cancel()

	checks := fiber.Map{"postgres": checkState(h.postgres.Ping(ctx))}
	ready := checks["postgres"] == "ok"

	if h.redis == nil {
		checks["redis"] = "disabled"
	} else {
		checks["redis"] = checkState(h.redis.Ping(ctx))
		ready = ready && checks["redis"] == "ok"
	}

	status := fiber.Map{"status": "ready", "checks": checks}
	if !ready {
		status["status"] = "unavailable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

func checkState(err error) string {
	if err != nil {
		return "unavailable"
	}
	return "ok"
}
