package handlers

import (
	"strconv"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	exportMaxRows  = 10000
)

func actorFrom(c *fiber.Ctx) string {
	if actor, ok := c.Locals("actor").(string); ok && actor != "" {
		return actor
	}
	return "unknown"
}

// respondError maps an application error onto the response envelope. Internal
// failures are logged with their cause but reported generically.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(apperr.HTTPStatus(kind)).JSON(dto.Fail(kind, apperr.MessageOf(err)))
}

func parseExpenseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("expense id must be a UUID")
	}
	return id, nil
}

func parsePage(c *fiber.Ctx) (page, perPage int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.Query("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
