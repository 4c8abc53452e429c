package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"salestrack-backend/internal/config"
	"salestrack-backend/internal/spreadsheet"
	"salestrack-backend/internal/utils"
)

// ErrorHandler renders every error as {"error": msg}. Unexpected errors are
// logged and hidden behind a generic 500.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
			})
		}

		var ve *utils.ValidationError
		if errors.As(err, &ve) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  ve.Error(),
				"fields": ve.Fields,
			})
		}

		var ie *spreadsheet.ImportError
		if errors.As(err, &ie) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": ie.Error(),
				"rows":  ie.Rows,
			})
		}

		config.LogError(logger, "server", "ErrorHandler", c.Method()+" "+c.Path(), nil, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unexpected server error",
		})
	}
}
