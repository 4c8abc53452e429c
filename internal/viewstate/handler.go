package viewstate

import (
	"github.com/gofiber/fiber/v2"

	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/utils"
)

type Response struct {
	Screen string `json:"screen"`
	Saved  bool   `json:"saved"`
	State  State  `json:"state"`
}

func screenParam(c *fiber.Ctx) (string, error) {
	screen := c.Params("screen")
	if !KnownScreen(screen) {
		return "", fiber.NewError(fiber.StatusNotFound, "Unknown screen")
	}
	return screen, nil
}

// GET /api/view-state/:screen
func GetViewStateHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		screen, err := screenParam(c)
		if err != nil {
			return err
		}
		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		st, found, err := store.Load(c.UserContext(), u.ID, screen)
		if err != nil {
			return err
		}
		if !found {
			st = Default(screen)
		}
		return c.JSON(Response{Screen: screen, Saved: found, State: st.Normalize(screen)})
	}
}

// PUT /api/view-state/:screen
func SaveViewStateHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		screen, err := screenParam(c)
		if err != nil {
			return err
		}
		var body State
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := utils.ValidateStruct(body); err != nil {
			return err
		}
		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		st := body.Normalize(screen)
		if err := store.Save(c.UserContext(), u.ID, screen, st); err != nil {
			return err
		}
		return c.JSON(Response{Screen: screen, Saved: true, State: st})
	}
}

// DELETE /api/view-state/:screen
func ClearViewStateHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		screen, err := screenParam(c)
		if err != nil {
			return err
		}
		u, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if err := store.Clear(c.UserContext(), u.ID, screen); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
