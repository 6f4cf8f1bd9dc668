package server

import (
	"errors"
	"fmt"
	"strconv"

	"civicboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that the helper already wrote the error body;
// the handler should just bubble it up as nil work.
var errResponseWritten = errors.New("response written")

// parseID reads a positive integer path parameter. On failure it writes the
// 400 body itself and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("Invalid %s parameter", param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parsePagination reads limit/offset query params with sane bounds.
func parsePagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
