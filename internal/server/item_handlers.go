package server

import (
	"strings"

	"civicboard/internal/models"
	"civicboard/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// CreateItemRequest is the payload for filing a new issue or suggestion.
type CreateItemRequest struct {
	Kind        models.ItemKind   `json:"kind"`
	County      string            `json:"county"`
	Visibility  models.Visibility `json:"visibility"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

// CreateItem files a new item. Kind, county and visibility are fixed at
// creation; the item always starts in under_review.
func (s *Server) CreateItem(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if !req.Kind.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Kind must be issue or suggestion"))
	}
	req.County = strings.TrimSpace(req.County)
	if req.County == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("County is required"))
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title is required"))
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	if !req.Visibility.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Visibility must be public or private"))
	}

	item := models.Item{
		Kind:        req.Kind,
		County:      req.County,
		Visibility:  req.Visibility,
		Status:      models.StatusUnderReview,
		Title:       req.Title,
		Description: req.Description,
		UserID:      userID,
	}
	if err := s.itemRepo.Create(c.UserContext(), &item); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// GetItem returns a single item. Private items are visible only to their
// author and to admins.
func (s *Server) GetItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	userID, isAdmin, _ := s.optionalIdentity(c)

	item, err := s.itemRepo.GetByID(c.UserContext(), id, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if item.Visibility == models.VisibilityPrivate && item.UserID != userID && !isAdmin {
		// Present private items as absent rather than confirming they exist.
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("item", id))
	}

	return c.JSON(item)
}

// GetItems lists public items, newest first, with optional kind and county
// filters.
func (s *Server) GetItems(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)

	filter := itemFilterFromQuery(c)
	if filter == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Kind must be issue or suggestion"))
	}

	userID, _, _ := s.optionalIdentity(c)

	items, err := s.itemRepo.List(c.UserContext(), *filter, limit, offset, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

func itemFilterFromQuery(c *fiber.Ctx) *repository.ItemFilter {
	filter := repository.ItemFilter{County: strings.TrimSpace(c.Query("county"))}
	if raw := c.Query("kind"); raw != "" {
		kind := models.ItemKind(raw)
		if !kind.Valid() {
			return nil
		}
		filter.Kind = kind
	}
	return &filter
}
