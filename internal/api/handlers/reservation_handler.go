package handlers

import (
	"github.com/Ibraz94/fleetbold-expenses/internal/dto"
	"github.com/Ibraz94/fleetbold-expenses/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	matcher *service.MatcherService
	logger  *zap.Logger
}

func NewReservationHandler(matcher *service.MatcherService, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{matcher: matcher, logger: logger}
}

func (h *ReservationHandler) List(c *fiber.Ctx) error {
	page, perPage := parsePage(c)
	reservations, hasNext, err := h.matcher.ListReservations(c.Context(), page, perPage)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(dto.OK(dto.ToReservationListResponse(reservations, hasNext)))
}
