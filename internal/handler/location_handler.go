package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/service/location"
)

type LocationHandler struct {
	locationService location.Service
}

func NewLocationHandler(locationService location.Service) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

func (h *LocationHandler) Divisions(c *fiber.Ctx) error {
	return c.JSON(h.locationService.Divisions(c.UserContext()))
}

// Districts answers with an empty list for an unknown or missing division.
func (h *LocationHandler) Districts(c *fiber.Ctx) error {
	return c.JSON(h.locationService.DistrictsOf(c.UserContext(), c.Query("division")))
}

func (h *LocationHandler) Upazilas(c *fiber.Ctx) error {
	return c.JSON(h.locationService.UpazilasOf(c.UserContext(), c.Query("district")))
}

func (h *LocationHandler) Reload(c *fiber.Ctx) error {
	if err := h.locationService.Reload(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
