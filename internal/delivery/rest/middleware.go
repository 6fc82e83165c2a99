package rest

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const (
	actorHeader = "X-Discord-ID"
	actorLocal  = "actor"
)

// GatewayAuth validates the bearer token sent by the gateway.
func GatewayAuth(expectedToken string, logger Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.Warn("rejected gateway token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}

// RequireActor reads the acting player's Discord id. The id outlives the
// request, so it is copied out of the fasthttp buffer.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := utils.CopyString(strings.TrimSpace(c.Get(actorHeader)))
		if actor == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": actorHeader + " header is required",
			})
		}
		c.Locals(actorLocal, actor)
		return c.Next()
	}
}

func actorOf(c *fiber.Ctx) string {
	actor, _ := c.Locals(actorLocal).(string)
	return actor
}
