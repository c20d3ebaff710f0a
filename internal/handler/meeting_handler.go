package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/middleware"
	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/service"
	"github.com/noah-isme/aula-go-api/internal/utils"
)

// MeetingHandler drives the join protocol endpoints, including the waiting
// room websocket used while a session has no moderator yet.
type MeetingHandler struct {
	meetings     service.MeetingService
	instances    service.InstanceService
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewMeetingHandler constructs the handler.
func NewMeetingHandler(meetings service.MeetingService, instances service.InstanceService, pollInterval time.Duration, logger zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{
		meetings:     meetings,
		instances:    instances,
		pollInterval: pollInterval,
		logger:       logger.With().Str("component", "meeting_handler").Logger(),
	}
}

// Register binds the meeting routes onto the instances group.
func (h *MeetingHandler) Register(router fiber.Router) {
	router.Post("/:id/join", middleware.WithAuth(h.join, middleware.AuthOptions{RequireUser: true}))
	router.Get("/:id/running", h.running)
	router.Get("/:id/recordings", h.recordings)
	router.Post("/:id/recordings/:recordID/played", middleware.WithAuth(h.recordingPlayed, middleware.AuthOptions{RequireUser: true}))
}

// RegisterWait binds the waiting-room websocket. Browsers cannot attach an
// Authorization header to a websocket upgrade, and the stream only reveals
// whether a session is running, so the route skips the bearer-token guard.
func (h *MeetingHandler) RegisterWait(router fiber.Router) {
	router.Use("/:id/wait", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c)))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/wait", websocket.New(h.wait))
}

func (h *MeetingHandler) join(c *fiber.Ctx) error {
	instance, ok, err := h.loadInstance(c)
	if !ok {
		return err
	}

	groupID, err := parseQueryUint(c, "group_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group_id")
	}
	origin, err := parseQueryInt(c, "origin")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid origin")
	}

	result, err := h.meetings.Join(c.UserContext(), instance, actorFromContext(c), groupID, origin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMeetingEnded):
			return utils.SendError(c, fiber.StatusGone, "session was ended and cannot be rejoined")
		case errors.Is(err, service.ErrProviderFailed):
			requestLogger(h.logger, c).Error().Err(err).Msg("provider rejected join")
			return utils.SendError(c, fiber.StatusBadGateway, "conferencing provider unavailable")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("join failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "join failed")
	}

	return utils.SendSuccess(c, "join evaluated", dto.JoinResponse{
		State:               string(result.State),
		JoinURL:             result.JoinURL,
		OpeningTime:         result.OpeningTime,
		ClosingTime:         result.ClosingTime,
		PollIntervalSeconds: int(result.PollInterval / time.Second),
		Recordings:          dto.NewRecordingResponseSlice(result.Recordings),
	})
}

func (h *MeetingHandler) running(c *fiber.Ctx) error {
	instance, ok, err := h.loadInstance(c)
	if !ok {
		return err
	}

	groupID, err := parseQueryUint(c, "group_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group_id")
	}

	running, err := h.meetings.IsRunning(c.UserContext(), instance, groupID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("running check failed")
		return utils.SendError(c, fiber.StatusBadGateway, "conferencing provider unavailable")
	}

	return utils.SendSuccess(c, "session state", dto.RunningResponse{Running: running})
}

func (h *MeetingHandler) recordings(c *fiber.Ctx) error {
	instance, ok, err := h.loadInstance(c)
	if !ok {
		return err
	}

	groupID, err := parseQueryUint(c, "group_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group_id")
	}

	recordings, err := h.meetings.Recordings(c.UserContext(), instance, groupID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list recordings")
		return utils.SendError(c, fiber.StatusBadGateway, "conferencing provider unavailable")
	}

	return utils.SendSuccess(c, "recordings retrieved", dto.NewRecordingResponseSlice(recordings))
}

func (h *MeetingHandler) recordingPlayed(c *fiber.Ctx) error {
	instance, ok, err := h.loadInstance(c)
	if !ok {
		return err
	}

	recordID := c.Params("recordID")
	if recordID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "record id required")
	}

	if err := h.meetings.RecordingPlayed(c.UserContext(), instance, actorFromContext(c), recordID); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to log playback")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to log playback")
	}

	return utils.SendSuccess(c, "playback recorded", nil)
}

type waitStatus struct {
	Running             bool `json:"running"`
	PollIntervalSeconds int  `json:"poll_interval_seconds"`
}

// wait pushes the session's running state over a websocket until a moderator
// opens it or the client disconnects. Clients then re-attempt the join.
func (h *MeetingHandler) wait(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	id, err := parseWaitInstanceID(conn)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid instance id"))
		return
	}

	ctx, ok := conn.Locals("request_ctx").(context.Context)
	if !ok || ctx == nil {
		ctx = context.Background()
	}

	instance, err := h.instances.Get(ctx, id)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusNotFound, "instance not found"))
		return
	}

	interval := h.pollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		running, err := h.meetings.IsRunning(ctx, instance, waitGroupID(conn))
		if err != nil {
			h.logger.Warn().Err(err).Uint("instance_id", id).Msg("waiting room poll failed")
		}

		if err := conn.WriteJSON(waitStatus{Running: running, PollIntervalSeconds: int(interval / time.Second)}); err != nil {
			return
		}
		if running {
			return
		}

		<-ticker.C
	}
}

func (h *MeetingHandler) loadInstance(c *fiber.Ctx) (models.Instance, bool, error) {
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

func parseWaitInstanceID(conn *websocket.Conn) (uint, error) {
	parsed, err := strconv.ParseUint(conn.Params("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func waitGroupID(conn *websocket.Conn) uint {
	parsed, err := strconv.ParseUint(conn.Query("group_id", "0"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}
