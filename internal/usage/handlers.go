package usage

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, gov *Governor) {
	r.Get("/", func(c *fiber.Ctx) error {
		stats, err := gov.Stats(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(stats)
	})
}
