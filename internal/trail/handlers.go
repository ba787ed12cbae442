package trail

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		areaID := c.Query("area")
		if areaID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "area required")
		}
		features, err := svc.ListFeatures(c.Context(), areaID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(features)
	})
}
