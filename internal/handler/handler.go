package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
	"blood-donation/internal/service"
)

type Handlers struct {
	DonationRequest *DonationRequestHandler
	Location        *LocationHandler
	Donor           *DonorHandler
	User            *UserHandler
	Dashboard       *DashboardHandler
	Audit           *AuditHandler
	Notification    *NotificationHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		DonationRequest: NewDonationRequestHandler(services.Donation, services.Audit),
		Location:        NewLocationHandler(services.Location),
		Donor:           NewDonorHandler(services.Search),
		User:            NewUserHandler(services.User),
		Dashboard:       NewDashboardHandler(services.Dashboard),
		Audit:           NewAuditHandler(services.Audit),
		Notification:    NewNotificationHandler(services.Notification),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.PaginationParams{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 10),
	}
	params.Validate()
	return params
}

func parseID(c *fiber.Ctx, param, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid " + label + " ID")
	}
	return id, nil
}
