package server

import (
	"civicboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TransitionRequest is the payload for a moderation decision.
type TransitionRequest struct {
	Status models.ItemStatus `json:"target_status"`
	Note   string            `json:"note"`
}

// TransitionItemStatus moves an item along its status lifecycle. The acting
// admin must hold the item's county; accepted and rejected require a note.
func (s *Server) TransitionItemStatus(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.moderationService.Transition(c.UserContext(), id, actorID, req.Status, req.Note)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(item)
}
