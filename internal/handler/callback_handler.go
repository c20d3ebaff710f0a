package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/internal/utils"
)

// CallbackHandler receives the provider's asynchronous webhooks. These
// arrive machine-to-machine, so they skip the platform JWT guard.
type CallbackHandler struct {
	meetings  service.MeetingService
	instances service.InstanceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCallbackHandler constructs the handler.
func NewCallbackHandler(meetings service.MeetingService, instances service.InstanceService, validate *validator.Validate, logger zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{
		meetings:  meetings,
		instances: instances,
		validator: validate,
		logger:    logger.With().Str("component", "callback_handler").Logger(),
	}
}

// Register binds the callback route.
func (h *CallbackHandler) Register(router fiber.Router) {
	router.Post("/:id/callbacks", h.handle)
}

func (h *CallbackHandler) handle(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	var req dto.CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	instance, err := h.instances.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "instance not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load instance")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load instance")
	}

	count, duplicate, err := h.meetings.HandleCallback(c.UserContext(), instance, req.RecordID, req.CallbackType)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to process callback")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process callback")
	}

	return utils.SendSuccess(c, "callback processed", dto.CallbackResponse{
		Duplicate: duplicate,
		Count:     count,
	})
}
