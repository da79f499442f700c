package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// readinessTimeout bounds the store ping so a wedged database turns the probe
// red instead of hanging it.
const readinessTimeout = 2 * time.Second

// HealthHandler serves the liveness and readiness probes. Readiness requires
// the message store to answer: every delivery transition commits before it
// broadcasts, so a backend that cannot reach the store cannot carry chat
// traffic even though the process is alive.
type HealthHandler struct {
	pool *pgxpool.Pool
}

func NewHealthHandler(pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Health reports process liveness only.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "messly-backend"})
}

// Ready reports whether the backend can accept websocket and management
// traffic right now.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		return c.Status(503).JSON(fiber.Map{
			"status": "not ready",
			"error":  "message store unreachable",
		})
	}

	return c.JSON(fiber.Map{"status": "ready", "service": "messly-backend"})
}
