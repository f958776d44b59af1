package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/service"
	"github.com/promptpal/promptpal-api/internal/utils"
)

// StatsHandler serves population-wide average scores.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler builds a stats handler instance.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/averages", h.averages)
}

func (h *StatsHandler) averages(c *fiber.Ctx) error {
	var excludeUserID *uint
	if parseQueryBool(c, "exclude_me") {
		userID := userIDFromContext(c)
		if userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		excludeUserID = &userID
	}

	averages, err := h.service.AverageScores(c.Context(), excludeUserID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "average scores retrieved", averages)
}
