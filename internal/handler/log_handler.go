package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/middleware"
	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/repository"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/internal/utils"
)

// LogHandler exposes the meeting event log: querying for moderators and the
// summary ingestion endpoint fed by the provider's events feed.
type LogHandler struct {
	events    service.EventLogService
	instances service.InstanceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLogHandler constructs the handler.
func NewLogHandler(events service.EventLogService, instances service.InstanceService, validate *validator.Validate, logger zerolog.Logger) *LogHandler {
	return &LogHandler{
		events:    events,
		instances: instances,
		validator: validate,
		logger:    logger.With().Str("component", "log_handler").Logger(),
	}
}

// Register binds the log query routes onto the instances group.
func (h *LogHandler) Register(router fiber.Router) {
	router.Get("/:id/logs", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.RoleModerator}))
}

// RegisterIngest binds the summary ingestion route. Summaries arrive from the
// conferencing provider, not from platform users, so they live outside the
// bearer-token guard.
func (h *LogHandler) RegisterIngest(router fiber.Router) {
	router.Post("/:id/summaries", h.ingestSummary)
}

func (h *LogHandler) list(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	filter := repository.MeetingLogFilter{}
	if raw := strings.TrimSpace(c.Query("event_type")); raw != "" {
		eventType := models.EventType(raw)
		if !eventType.Valid() {
			return utils.SendError(c, fiber.StatusBadRequest, "unknown event type")
		}
		filter.EventType = eventType
	}
	if userID, err := parseQueryUint(c, "user_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user_id")
	} else if userID != 0 {
		filter.UserID = &userID
	}

	entries, err := h.events.Query(c.UserContext(), id, filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to query log")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to query log")
	}

	return utils.SendSuccess(c, "log entries retrieved", dto.NewLogEntryResponseSlice(entries))
}

func (h *LogHandler) ingestSummary(c *fiber.Ctx) error {
	id, err := parseParamUint(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid instance id")
	}

	var req dto.SummaryRequest
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

	if err := h.events.LogEventSummary(c.UserContext(), instance, req.UserID, req.Origin, req.DurationMinutes, req.Engagement); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to store summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to store summary")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "summary recorded", nil)
}
