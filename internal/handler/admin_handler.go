package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/observability"
	"github.com/promptpal/promptpal-api/internal/queue"
	"github.com/promptpal/promptpal-api/internal/service"
	"github.com/promptpal/promptpal-api/internal/utils"
)

// AdminHandler exposes repair and maintenance operations: streak resyncs,
// the inactivity sweep, digest dispatch, cache invalidation, and re-queueing
// stuck submissions.
type AdminHandler struct {
	streaks    service.StreakService
	digest     service.DigestService
	stats      service.StatsService
	dispatcher queue.Dispatcher
	logger     zerolog.Logger
}

// NewAdminHandler builds an admin handler instance.
func NewAdminHandler(streaks service.StreakService, digest service.DigestService, stats service.StatsService, dispatcher queue.Dispatcher, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		streaks:    streaks,
		digest:     digest,
		stats:      stats,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/streaks/reset-inactive", h.resetInactiveStreaks)
	router.Post("/streaks/:userID/resync", h.resyncStreak)
	router.Post("/digest/send", h.sendDigest)
	router.Post("/stats/invalidate-cache", h.invalidateStatsCache)
	router.Post("/submissions/:id/redispatch", h.redispatchSubmission)
}

func (h *AdminHandler) resetInactiveStreaks(c *fiber.Ctx) error {
	resets, err := h.streaks.ResetInactiveStreaks(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	observability.StreakResets().Add(float64(resets))
	return utils.SendSuccess(c, "inactive streaks reset", fiber.Map{"resets": resets})
}

func (h *AdminHandler) resyncStreak(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	streak, err := h.streaks.ResyncFromHistory(c.Context(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "streak resynced", streak)
}

func (h *AdminHandler) sendDigest(c *fiber.Ctx) error {
	sent, failed, err := h.digest.SendDailyDigest(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "digest dispatched", fiber.Map{"sent": sent, "failed": failed})
}

func (h *AdminHandler) invalidateStatsCache(c *fiber.Ctx) error {
	if err := h.stats.InvalidateCache(c.Context()); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "stats cache invalidated", nil)
}

func (h *AdminHandler) redispatchSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	if err := h.dispatcher.DispatchSubmission(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "submission re-queued for judging", nil)
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
