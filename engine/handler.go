package engine

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

// ErrorHandler is the app-wide fiber error handler. Engine errors carry their
// own status; fiber routing errors keep theirs; everything else is a 500.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := HTTPStatus(err)

	if ve := AsValidation(err); ve != nil {
		return c.Status(status).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": ve.Fields(),
		})
	}

	if status == fiber.StatusInternalServerError {
		// Internal detail stays out of the response body.
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
