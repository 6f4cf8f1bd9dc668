package server

import (
	"civicboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// loadVisibleItem fetches the item and hides private items from everyone but
// their author and admins.
func (s *Server) loadVisibleItem(c *fiber.Ctx, id, userID uint, isAdmin bool) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(c.UserContext(), id, userID)
	if err != nil {
		return nil, err
	}
	if item.Visibility == models.VisibilityPrivate && item.UserID != userID && !isAdmin {
		return nil, models.NewNotFoundError("item", id)
	}
	return item, nil
}

// ToggleAppraisalRequest optionally pins the item kind the caller believes
// they are appraising.
type ToggleAppraisalRequest struct {
	ItemKind models.ItemKind `json:"item_kind"`
}

// ToggleAppraisal flips the caller's appraisal of the item and returns the
// post-toggle state with the authoritative count.
func (s *Server) ToggleAppraisal(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	isAdmin, _ := c.Locals("isAdmin").(bool)

	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.loadVisibleItem(c, id, userID, isAdmin)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	kind := item.Kind
	var req ToggleAppraisalRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}
	if req.ItemKind != "" {
		if !req.ItemKind.Valid() {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("item_kind must be issue or suggestion"))
		}
		// A mismatched kind names an item that does not exist.
		kind = req.ItemKind
	}

	status, err := s.appraisalRepo.Toggle(c.UserContext(), userID, item.ID, kind)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(status)
}

// GetAppraisalStatus returns the live count plus, for authenticated callers,
// whether they currently appraise the item.
func (s *Server) GetAppraisalStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	userID, isAdmin, _ := s.optionalIdentity(c)

	item, err := s.loadVisibleItem(c, id, userID, isAdmin)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	kind := item.Kind
	if raw := c.Query("item_kind", c.Query("itemKind")); raw != "" {
		queried := models.ItemKind(raw)
		if !queried.Valid() {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("item_kind must be issue or suggestion"))
		}
		kind = queried
	}

	status, err := s.appraisalRepo.Status(c.UserContext(), userID, item.ID, kind)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(status)
}
