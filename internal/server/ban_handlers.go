package server

import (
	"strings"

	"civicboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// IssueBanRequest is the payload for suspending a user.
type IssueBanRequest struct {
	UserID   uint               `json:"user_id"`
	Duration models.BanDuration `json:"duration"`
	Reason   string             `json:"reason"`
}

// IssueBan suspends a user for the given duration. Issuing a ban for a user
// who already has one replaces it.
func (s *Server) IssueBan(c *fiber.Ctx) error {
	adminID := c.Locals("userID").(uint)

	var req IssueBanRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id is required"))
	}
	if req.UserID == adminID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("You cannot ban yourself"))
	}
	req.Reason = strings.TrimSpace(req.Reason)

	ban, err := s.banRepo.Issue(c.UserContext(), req.UserID, adminID, req.Duration, req.Reason)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ban)
}

// RevokeBan lifts a user's ban. Revoking a user with no ban is a no-op.
func (s *Server) RevokeBan(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.banRepo.Revoke(c.UserContext(), userID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetBanStatus reports whether the user is currently banned. Expiry is
// evaluated against the clock at read time.
func (s *Server) GetBanStatus(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	status, err := s.banRepo.Status(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(status)
}
