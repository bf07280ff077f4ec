package run

import (
	"errors"
	"time"

	"backend-pacetrack/internal/auth"
	"backend-pacetrack/internal/gps"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	StartedAtMs int64 `json:"started_at_ms"`
	AutoPause   *bool `json:"auto_pause"`
}

type sourceErrorRequest struct {
	Code int `json:"code"`
}

func statusFromErr(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrRunStopped):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// RegisterRoutes wires the live-run endpoints. startMatch, when set, is
// called after a stop that asked for map matching; it must not block.
func RegisterRoutes(r fiber.Router, svc *Service, startMatch func(historyID string), authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.StartedAtMs == 0 {
			req.StartedAtMs = time.Now().UnixMilli()
		}
		// Auto-pause is on unless the client opts out.
		autoPause := req.AutoPause == nil || *req.AutoPause
		status := svc.Start(auth.DeviceID(c), req.StartedAtMs, autoPause)
		return c.Status(fiber.StatusCreated).JSON(status)
	})

	r.Post("/:id/samples", authMiddleware, func(c *fiber.Ctx) error {
		var sample gps.RawSample
		if err := c.BodyParser(&sample); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if sample.TimestampMs == 0 {
			sample.TimestampMs = time.Now().UnixMilli()
		}
		result, err := svc.Ingest(c.Params("id"), sample)
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(result)
	})

	r.Post("/:id/source-errors", authMiddleware, func(c *fiber.Ctx) error {
		var req sourceErrorRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		category, err := svc.SourceError(c.Params("id"), req.Code, time.Now().UnixMilli())
		if err != nil {
			if errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrRunStopped) {
				return statusFromErr(err)
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"category": category})
	})

	r.Post("/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Pause(c.Params("id"), time.Now().UnixMilli()); err != nil {
			return statusFromErr(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Resume(c.Params("id"), time.Now().UnixMilli()); err != nil {
			return statusFromErr(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		summary, historyID, err := svc.Stop(c.Context(), c.Params("id"), time.Now().UnixMilli())
		if err != nil {
			return statusFromErr(err)
		}
		if c.QueryBool("match") && historyID != "" && startMatch != nil {
			startMatch(historyID)
		}
		return c.JSON(fiber.Map{"summary": summary, "history_id": historyID})
	})

	r.Get("/:id/live", func(c *fiber.Ctx) error {
		status, err := svc.Status(c.Params("id"), time.Now().UnixMilli())
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(status)
	})

	r.Get("/:id/trajectory", func(c *fiber.Ctx) error {
		points, err := svc.Trajectory(c.Params("id"))
		if err != nil {
			return statusFromErr(err)
		}
		return c.JSON(points)
	})
}
