// Package server builds the fiber application shared by the binary and the
// handler tests.
package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// bodyLimit leaves room for sale imports.
const bodyLimit = 20 << 20

// NewApp returns a fiber app with the error handler, panic recovery and, when
// origins are given, CORS. A recovered panic reaches the error handler as a 500.
func NewApp(logger *logrus.Logger, corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logger),
		BodyLimit:    bodyLimit,
	})
	app.Use(recover.New())

	if corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		app.Use(cors.New(cors.Config{
			AllowOrigins:  strings.Join(origins, ","),
			AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
			AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
			ExposeHeaders: "Content-Disposition",
		}))
	}
	return app
}
