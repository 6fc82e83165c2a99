package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"hqbot/internal/game"
)

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch game.KindOf(err) {
	case game.KindValidation:
		return fiber.StatusBadRequest
	case game.KindAuthorization:
		return fiber.StatusForbidden
	case game.KindStateConflict:
		return fiber.StatusConflict
	case game.KindFunds:
		return fiber.StatusPaymentRequired
	case game.KindNotFound:
		return fiber.StatusNotFound
	case game.KindTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(logger Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		if code := game.CodeOf(err); code != "" {
			return c.Status(statusFor(err)).JSON(fiber.Map{
				"error":   code,
				"message": game.Reason(err),
			})
		}

		logger.Error("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal",
			"message": game.Reason(err),
		})
	}
}
