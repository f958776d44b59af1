package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/service"
	"github.com/promptpal/promptpal-api/internal/utils"
)

// StreakHandler serves streak state and the leaderboard.
type StreakHandler struct {
	service      service.StreakService
	defaultLimit int
	logger       zerolog.Logger
}

// NewStreakHandler builds a streak handler instance.
func NewStreakHandler(service service.StreakService, defaultLimit int, logger zerolog.Logger) *StreakHandler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}

	return &StreakHandler{
		service:      service,
		defaultLimit: defaultLimit,
		logger:       logger.With().Str("component", "streak_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *StreakHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Get("/leaderboard", h.leaderboard)
}

func (h *StreakHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	streak, err := h.service.GetStreak(c.Context(), userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "streak retrieved", streak)
}

func (h *StreakHandler) leaderboard(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	if limit == 0 {
		limit = h.defaultLimit
	}

	entries, err := h.service.Leaderboard(c.Context(), limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "leaderboard retrieved", entries)
}
