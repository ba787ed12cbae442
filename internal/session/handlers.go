package session

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/braincandydan/The-Hunt-sub000/internal/tracker"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Session
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.UserID == "" || req.AreaID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and area_id required")
		}
		started, err := svc.Start(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(started)
	})

	r.Post("/:id/fixes", authMiddleware, func(c *fiber.Ctx) error {
		var fix tracker.Fix
		if err := c.BodyParser(&fix); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		records, err := svc.Ingest(c.Context(), c.Params("id"), fix)
		if err != nil {
			return statusError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"segments": records})
	})

	r.Post("/:id/completions/manual", authMiddleware, func(c *fiber.Ctx) error {
		var req ManualCompletionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.TrailID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "trail_id required")
		}
		rec, err := svc.CompleteManual(c.Context(), c.Params("id"), req)
		if err != nil {
			return statusError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	r.Post("/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		records, err := svc.End(c.Context(), c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(fiber.Map{"segments": records})
	})

	r.Get("/:id/runs", func(c *fiber.Ctx) error {
		runs, err := svc.Runs(c.Params("id"))
		if err != nil {
			return statusError(err)
		}
		return c.JSON(runs)
	})
}

func statusError(err error) error {
	switch {
	case errors.Is(err, ErrNotTracking):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrCompletionRefused):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
