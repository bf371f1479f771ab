package handler

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/service/search"
)

type DonorHandler struct {
	searchService search.Service
}

func NewDonorHandler(searchService search.Service) *DonorHandler {
	return &DonorHandler{searchService: searchService}
}

func (h *DonorHandler) Search(c *fiber.Ctx) error {
	filter := search.NewFilter(
		c.Query(search.FieldBloodGroup),
		c.Query(search.FieldDivision),
		c.Query(search.FieldDistrict),
		c.Query(search.FieldUpazila),
	)

	result, err := h.searchService.SearchDonors(c.UserContext(), filter, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.JSON(result)
}
