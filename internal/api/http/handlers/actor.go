package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// actorFrom reads the acting party from request headers. Identity arrives
// from the gateway that terminated authentication.
func actorFrom(c *fiber.Ctx) (string, domain.ActorType, error) {
	id := c.Get("X-Actor-Id")
	actorType := domain.ActorType(strings.ToUpper(c.Get("X-Actor-Type")))
	if id == "" || !actorType.Valid() {
		return "", "", util.NewValidationError("X-Actor-Id and X-Actor-Type headers required", nil)
	}
	return id, actorType, nil
}
