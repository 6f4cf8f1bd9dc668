package server

import (
	"civicboard/internal/models"
	"civicboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetTrending returns the ranked item list for the requested scope.
// scope is one of issues, suggestions or all; absent means all.
func (s *Server) GetTrending(c *fiber.Ctx) error {
	scope, ok := service.ParseTrendingScope(c.Query("scope"))
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Scope must be issues, suggestions or all"))
	}

	items, err := s.trendingService.ComputeTrending(c.UserContext(), scope)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"scope": scope,
		"items": items,
	})
}
