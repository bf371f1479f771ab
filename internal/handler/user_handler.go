package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service/user"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	current := middleware.GetCurrentUser(c)
	if current == nil {
		return middleware.Unauthorized("User not found")
	}
	return c.JSON(current)
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var input domain.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	updated, err := h.userService.UpdateProfile(c.UserContext(), middleware.GetCurrentUser(c), input)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

func (h *UserHandler) SetStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}

	var input domain.SetUserStatusInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	updated, err := h.userService.SetStatus(c.UserContext(), middleware.GetCurrentUser(c), id, input.Status, middleware.GetRequestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

func (h *UserHandler) AssignRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}

	var input domain.AssignRoleInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	updated, err := h.userService.AssignRole(c.UserContext(), middleware.GetCurrentUser(c), id, input.Role, middleware.GetRequestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(updated)
}
