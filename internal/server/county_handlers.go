package server

import (
	"civicboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AssignCountiesRequest is the payload for claiming a batch of counties.
type AssignCountiesRequest struct {
	Counties []string `json:"counties"`
}

// AssignCounties claims the listed counties for the calling admin. The batch
// is all-or-nothing: one contested county aborts the whole request with a
// 409 naming that county.
func (s *Server) AssignCounties(c *fiber.Ctx) error {
	adminID := c.Locals("userID").(uint)

	var req AssignCountiesRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if len(req.Counties) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("At least one county is required"))
	}

	counties, err := s.countyRepo.Assign(c.UserContext(), adminID, req.Counties)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"assigned": counties})
}

// GetMyCounties returns the counties currently held by the calling admin.
func (s *Server) GetMyCounties(c *fiber.Ctx) error {
	adminID := c.Locals("userID").(uint)

	counties, err := s.countyRepo.ListByAdmin(c.UserContext(), adminID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{"counties": counties})
}
