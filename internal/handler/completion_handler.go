package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/middleware"
	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/internal/utils"
)

// CompletionHandler exposes the completion verdict and rule descriptions.
type CompletionHandler struct {
	completion service.CompletionService
	instances  service.InstanceService
	logger     zerolog.Logger
}

// NewCompletionHandler constructs the handler.
func NewCompletionHandler(completion service.CompletionService, instances service.InstanceService, logger zerolog.Logger) *CompletionHandler {
	return &CompletionHandler{
		completion: completion,
		instances:  instances,
		logger:     logger.With().Str("component", "completion_handler").Logger(),
	}
}

// Register binds the completion routes onto the instances group.
func (h *CompletionHandler) Register(router fiber.Router) {
	router.Get("/:id/completion", middleware.WithAuth(h.state, middleware.AuthOptions{RequireUser: true}))
	router.Get("/:id/completion/rules", middleware.WithAuth(h.rules, middleware.AuthOptions{RequireUser: true}))
}

// targetUserID resolves whose completion is being asked about. Moderators may
// inspect any user; everyone else only sees themselves.
func (h *CompletionHandler) targetUserID(c *fiber.Ctx) (uint, error) {
	requested, err := parseQueryUint(c, "user_id")
	if err != nil {
		return 0, err
	}

	actor := actorFromContext(c)
	if requested == 0 || requested == actor.UserID {
		return actor.UserID, nil
	}
	if actor.IsAdmin || actor.IsModerator {
		return requested, nil
	}
	return 0, errors.New("forbidden")
}

func (h *CompletionHandler) state(c *fiber.Ctx) error {
	instance, ok, err := h.load(c)
	if !ok {
		return err
	}

	userID, err := h.targetUserID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, "cannot inspect another user's completion")
	}

	state, err := h.completion.OverallState(c.UserContext(), instance, userID, models.ParseRuleSet(instance.CompletionRules))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to evaluate completion")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to evaluate completion")
	}

	summary, err := h.completion.Aggregate(c.UserContext(), instance, userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to aggregate engagement")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to aggregate engagement")
	}

	return utils.SendSuccess(c, "completion evaluated", dto.CompletionResponse{
		State:        string(state),
		TotalMinutes: summary.TotalMinutes,
		Engagement:   summary.Metrics,
	})
}

func (h *CompletionHandler) rules(c *fiber.Ctx) error {
	instance, ok, err := h.load(c)
	if !ok {
		return err
	}

	userID, err := h.targetUserID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, "cannot inspect another user's completion")
	}

	descriptions, err := h.completion.RuleDescriptions(c.UserContext(), instance, userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to describe rules")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to describe rules")
	}

	return utils.SendSuccess(c, "rules described", descriptions)
}

func (h *CompletionHandler) load(c *fiber.Ctx) (models.Instance, bool, error) {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return models.Instance{}, false, utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	instance, err := h.instances.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Instance{}, false, utils.SendError(c, fiber.StatusNotFound, "instance not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load instance")
		return models.Instance{}, false, utils.SendError(c, fiber.StatusInternalServerError, "failed to load instance")
	}

	return instance, true, nil
}
