package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/pkg/i18n"
	"blood-donation/internal/service/audit"
	"blood-donation/internal/service/donation"
)

type DonationRequestHandler struct {
	donationService donation.Service
	auditService    audit.Service
}

func NewDonationRequestHandler(donationService donation.Service, auditService audit.Service) *DonationRequestHandler {
	return &DonationRequestHandler{
		donationService: donationService,
		auditService:    auditService,
	}
}

func (h *DonationRequestHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateDonationRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.donationService.Create(c.UserContext(), middleware.GetCurrentUser(c), input, middleware.GetRequestMeta(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *DonationRequestHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	req, err := h.donationService.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(req)
}

// List supports status, blood_group, requester=me and donor=me filters.
func (h *DonationRequestHandler) List(c *fiber.Ctx) error {
	var filter domain.ListRequestsFilter

	if v := c.Query("status"); v != "" {
		status := domain.RequestStatus(v)
		filter.Status = &status
	}
	if v := c.Query("blood_group"); v != "" {
		bg := domain.BloodGroup(v)
		filter.BloodGroup = &bg
	}
	if c.Query("requester") == "me" || c.Query("donor") == "me" {
		userID := middleware.GetCurrentUserID(c)
		if userID == uuid.Nil {
			return middleware.Unauthorized("Sign in to list your own requests")
		}
		if c.Query("requester") == "me" {
			filter.RequesterID = &userID
		}
		if c.Query("donor") == "me" {
			filter.DonorID = &userID
		}
	}

	result, err := h.donationService.List(c.UserContext(), filter, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (h *DonationRequestHandler) Actions(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	actions, err := h.donationService.Actions(c.UserContext(), id, middleware.GetCurrentUser(c))
	if err != nil {
		return err
	}
	actions.Localize(i18n.FromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage)))

	return c.JSON(actions)
}

func (h *DonationRequestHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	var input domain.UpdateDonationRequestInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.donationService.Update(c.UserContext(), id, middleware.GetCurrentUser(c), input, middleware.GetRequestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(req)
}

func (h *DonationRequestHandler) Donate(c *fiber.Ctx) error {
	return h.command(c, h.donationService.Donate)
}

func (h *DonationRequestHandler) Complete(c *fiber.Ctx) error {
	return h.command(c, h.donationService.Complete)
}

func (h *DonationRequestHandler) Cancel(c *fiber.Ctx) error {
	return h.command(c, h.donationService.Cancel)
}

func (h *DonationRequestHandler) ForceStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	var input domain.ForceStatusInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	req, err := h.donationService.ForceStatus(c.UserContext(), id, middleware.GetCurrentUser(c), input, middleware.GetRequestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(req)
}

func (h *DonationRequestHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	if err := h.donationService.Delete(c.UserContext(), id, middleware.GetCurrentUser(c), middleware.GetRequestMeta(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *DonationRequestHandler) AuditTrail(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	result, err := h.auditService.ListForEntity(c.UserContext(), domain.EntityDonationRequest, id, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.JSON(result)
}

type commandFunc func(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error)

// command runs an append-entry transition that takes no body.
func (h *DonationRequestHandler) command(c *fiber.Ctx, run commandFunc) error {
	id, err := parseID(c, "id", "request")
	if err != nil {
		return err
	}

	req, err := run(c.UserContext(), id, middleware.GetCurrentUser(c), middleware.GetRequestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(req)
}
