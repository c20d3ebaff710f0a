package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/middleware"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/internal/utils"
)

// InstanceHandler exposes the activity lifecycle endpoints.
type InstanceHandler struct {
	service service.InstanceService
	logger  zerolog.Logger
}

// NewInstanceHandler constructs the handler.
func NewInstanceHandler(service service.InstanceService, logger zerolog.Logger) *InstanceHandler {
	return &InstanceHandler{
		service: service,
		logger:  logger.With().Str("component", "instance_handler").Logger(),
	}
}

// Register binds the instance routes. Mutations require moderator privileges.
func (h *InstanceHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.RoleModerator}))
	router.Get("/schedule", h.schedule)
	router.Get("/:id", h.get)
	router.Patch("/:id", middleware.WithAuth(h.update, middleware.AuthOptions{Role: middleware.RoleModerator}))
	router.Delete("/:id", middleware.WithAuth(h.delete, middleware.AuthOptions{Role: middleware.RoleModerator}))
	router.Post("/:id/presentation", middleware.WithAuth(h.attachPresentation, middleware.AuthOptions{Role: middleware.RoleModerator}))
}

func (h *InstanceHandler) list(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil || courseID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id is required")
	}

	instances, err := h.service.ListByCourse(c.UserContext(), courseID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list instances")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list instances")
	}

	return utils.SendSuccess(c, "instances retrieved", instances)
}

func (h *InstanceHandler) schedule(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil || courseID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id is required")
	}

	entries, err := h.service.Schedule(c.UserContext(), courseID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list course schedule")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list course schedule")
	}

	return utils.SendSuccess(c, "schedule retrieved", entries)
}

func (h *InstanceHandler) create(c *fiber.Ctx) error {
	var req dto.InstanceCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	instance, err := h.service.Create(c.UserContext(), req, actorFromContext(c))
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create instance")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create instance")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "instance created", instance)
}

func (h *InstanceHandler) get(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	instance, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "instance not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load instance")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load instance")
	}

	// Views go to the request log and metrics, not the audit table.
	requestLogger(h.logger, c).Debug().Uint("instance_id", instance.ID).Uint("user_id", userIDFromContext(c)).Msg("instance viewed")

	return utils.SendSuccess(c, "instance retrieved", dto.NewInstanceResponse(instance))
}

func (h *InstanceHandler) update(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	var req dto.InstanceUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	instance, err := h.service.Update(c.UserContext(), id, req, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "instance not found")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to update instance")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update instance")
	}

	return utils.SendSuccess(c, "instance updated", instance)
}

func (h *InstanceHandler) delete(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	if err := h.service.Delete(c.UserContext(), id, actorFromContext(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "instance not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete instance")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete instance")
	}

	return utils.SendSuccess(c, "instance deleted", nil)
}

func (h *InstanceHandler) attachPresentation(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	file, err := c.FormFile("presentation")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "presentation file is required")
	}

	instance, err := h.service.AttachPresentation(c.UserContext(), id, file)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "instance not found")
		case errors.Is(err, service.ErrPresentationTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrPresentationTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, service.ErrStorageUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to attach presentation")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to attach presentation")
	}

	return utils.SendSuccess(c, "presentation attached", instance)
}
