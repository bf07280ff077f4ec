package history

import (
	"errors"

	"backend-pacetrack/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func statusFromErr(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrMissingID):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoRoute):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrMatchBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		records, err := svc.List(c.Context(), auth.DeviceID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(records)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		rec, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(rec)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var patch Record
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rec, err := svc.Update(c.Context(), c.Params("id"), patch)
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(rec)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id")); err != nil {
			return statusFromErr(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/match", authMiddleware, func(c *fiber.Ctx) error {
		rec, err := svc.MatchRun(c.Context(), c.Params("id"))
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(rec)
	})

	r.Get("/:id/route", func(c *fiber.Ctx) error {
		tolerance := c.QueryFloat("tolerance")
		if tolerance == 0 && c.QueryBool("simplify") {
			tolerance = defaultRouteTolerance
		}
		points, err := svc.Route(c.Context(), c.Params("id"), tolerance)
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(points)
	})
}
