package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quotation-service/internal/persistence"
)

// queueStats exposes the depth of the notification queue and its dead-letter
// list; *queue.RedisQueue satisfies it.
type queueStats interface {
	Len(ctx context.Context) (int64, error)
	DeadLetterLen(ctx context.Context) (int64, error)
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	queue       queueStats
}

func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, queue queueStats) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis, queue: queue}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready checks the two hard dependencies and, when the broker answers,
// reports queue and dead-letter depth so operators see a backlog building.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if err := h.postgres.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
		if h.queue != nil {
			queueInfo := fiber.Map{}
			if depth, err := h.queue.Len(ctx); err == nil {
				queueInfo["depth"] = depth
			}
			if dead, err := h.queue.DeadLetterLen(ctx); err == nil {
				queueInfo["dead_letters"] = dead
			}
			depStatus["queue"] = queueInfo
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
