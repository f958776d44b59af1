package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/service"
	"github.com/promptpal/promptpal-api/internal/utils"
)

// ResultHandler serves aggregate user results and dispatches result emails.
type ResultHandler struct {
	results service.UserResultService
	digest  service.DigestService
	logger  zerolog.Logger
}

// NewResultHandler builds a result handler instance.
func NewResultHandler(results service.UserResultService, digest service.DigestService, logger zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		digest:  digest,
		logger:  logger.With().Str("component", "result_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ResultHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Post("/me/email", h.email)
}

func (h *ResultHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	result, err := h.results.ComputeUserResult(c.Context(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "result retrieved", result)
}

func (h *ResultHandler) email(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.digest.SendResultsEmail(c.Context(), userID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "results email sent", nil)
}

func (h *ResultHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
