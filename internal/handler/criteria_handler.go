package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/service"
	"github.com/promptpal/promptpal-api/internal/utils"
)

// CriteriaHandler exposes the published grading rubric.
type CriteriaHandler struct {
	rubric service.RubricService
	logger zerolog.Logger
}

// NewCriteriaHandler builds a criteria handler instance.
func NewCriteriaHandler(rubric service.RubricService, logger zerolog.Logger) *CriteriaHandler {
	return &CriteriaHandler{
		rubric: rubric,
		logger: logger.With().Str("component", "criteria_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *CriteriaHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *CriteriaHandler) list(c *fiber.Ctx) error {
	rubric, err := h.rubric.LoadRubric(c.Context())
	if err != nil {
		if errors.Is(err, service.ErrEmptyRubric) {
			return utils.SendSuccess(c, "no rubric published", []dto.CriterionResponse{})
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "rubric retrieved", dto.NewCriterionResponses(rubric))
}
