package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/aula-go-api/internal/dto"
	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/repository"
)

var (
	// ErrPresentationTooLarge indicates the uploaded document exceeded the limit.
	ErrPresentationTooLarge = errors.New("presentation exceeds maximum allowed size")
	// ErrPresentationTypeNotAllowed indicates the document type cannot be
	// handed to the conferencing provider.
	ErrPresentationTypeNotAllowed = errors.New("presentation file type not allowed")
	// ErrStorageUnavailable indicates no document storage backend is configured.
	ErrStorageUnavailable = errors.New("presentation storage is not configured")
)

const maxPresentationBytes = 30 * 1024 * 1024

// FileStorage abstracts where presentation documents are stored.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// InstanceService manages the lifecycle of conferencing activities: creation
// with a stable meeting identity, edits that never touch that identity, the
// calendar entry derived from the schedule, and deletion.
type InstanceService interface {
	Create(ctx context.Context, req dto.InstanceCreateRequest, actor Actor) (dto.InstanceResponse, error)
	Update(ctx context.Context, id uint, req dto.InstanceUpdateRequest, actor Actor) (dto.InstanceResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	Get(ctx context.Context, id uint) (models.Instance, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.InstanceResponse, error)
	Schedule(ctx context.Context, courseID uint) ([]dto.ScheduleEntryResponse, error)
	AttachPresentation(ctx context.Context, id uint, file *multipart.FileHeader) (dto.InstanceResponse, error)
}

type instanceService struct {
	repo          repository.InstanceRepository
	schedules     repository.ScheduleRepository
	events        EventLogService
	notifications NotificationService
	storage       FileStorage
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewInstanceService constructs the instance lifecycle service. The storage
// and notification dependencies may be nil; the matching features then
// degrade to no-ops.
func NewInstanceService(repo repository.InstanceRepository, schedules repository.ScheduleRepository, events EventLogService, notifications NotificationService, storage FileStorage, validate *validator.Validate, logger zerolog.Logger) InstanceService {
	return &instanceService{
		repo:          repo,
		schedules:     schedules,
		events:        events,
		notifications: notifications,
		storage:       storage,
		validator:     validate,
		sanitizer:     bluemonday.UGCPolicy(),
		logger:        logger.With().Str("component", "instance_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/aula-go-api/internal/service/instance"),
	}
}

func (s *instanceService) Create(ctx context.Context, req dto.InstanceCreateRequest, actor Actor) (dto.InstanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.InstanceResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "instances.create", trace.WithAttributes(
		attribute.Int64("course.id", int64(req.CourseID)),
	))
	defer span.End()

	// Meeting identity and both access secrets are minted exactly once here.
	// Edits never regenerate them, so join links stay stable for the lifetime
	// of the activity.
	instance := models.Instance{
		CourseID:         req.CourseID,
		Name:             strings.TrimSpace(req.Name),
		Welcome:          s.sanitizer.Sanitize(req.Welcome),
		MeetingID:        uuid.NewString(),
		ModeratorSecret:  uuid.NewString(),
		ViewerSecret:     uuid.NewString(),
		OpeningTime:      req.OpeningTime,
		ClosingTime:      req.ClosingTime,
		WaitForModerator: req.WaitForModerator,
		RecordingEnabled: req.RecordingEnabled,
		GroupMode:        models.GroupMode(req.GroupMode),
		CompletionRules:  completionRulesMap(req.CompletionRules),
	}

	if err := s.repo.Create(spanCtx, &instance); err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	if err := s.events.LogInstanceCreated(spanCtx, instance, actor.UserID); err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	if err := s.syncSchedule(spanCtx, instance); err != nil {
		s.logger.Warn().Err(err).Uint("instance_id", instance.ID).Msg("failed to sync calendar entry")
	}

	s.logger.Info().Uint("instance_id", instance.ID).Uint("course_id", instance.CourseID).Msg("instance created")
	return dto.NewInstanceResponse(instance), nil
}

func (s *instanceService) Update(ctx context.Context, id uint, req dto.InstanceUpdateRequest, actor Actor) (dto.InstanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.InstanceResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "instances.update", trace.WithAttributes(
		attribute.Int64("instance.id", int64(id)),
	))
	defer span.End()

	instance, err := s.repo.GetByID(spanCtx, id)
	if err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	if req.Name != nil {
		instance.Name = strings.TrimSpace(*req.Name)
	}
	if req.Welcome != nil {
		instance.Welcome = s.sanitizer.Sanitize(*req.Welcome)
	}
	if req.ClearOpening {
		instance.OpeningTime = nil
	} else if req.OpeningTime != nil {
		instance.OpeningTime = req.OpeningTime
	}
	if req.ClearClosing {
		instance.ClosingTime = nil
	} else if req.ClosingTime != nil {
		instance.ClosingTime = req.ClosingTime
	}
	if req.WaitForModerator != nil {
		instance.WaitForModerator = *req.WaitForModerator
	}
	if req.RecordingEnabled != nil {
		instance.RecordingEnabled = *req.RecordingEnabled
	}
	if req.GroupMode != nil {
		instance.GroupMode = models.GroupMode(*req.GroupMode)
	}
	if req.CompletionRules != nil {
		instance.CompletionRules = completionRulesMap(req.CompletionRules)
	}

	if err := s.repo.Update(spanCtx, &instance); err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	if err := s.events.LogInstanceUpdated(spanCtx, instance, actor.UserID); err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	if err := s.syncSchedule(spanCtx, instance); err != nil {
		s.logger.Warn().Err(err).Uint("instance_id", instance.ID).Msg("failed to sync calendar entry")
	}

	if req.Notify {
		s.notifyUpdate(spanCtx, instance, req.NotifyMessage)
	}

	return dto.NewInstanceResponse(instance), nil
}

func (s *instanceService) Delete(ctx context.Context, id uint, actor Actor) error {
	spanCtx, span := s.tracer.Start(ctx, "instances.delete", trace.WithAttributes(
		attribute.Int64("instance.id", int64(id)),
	))
	defer span.End()

	instance, err := s.repo.GetByID(spanCtx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// The delete marker captures whether recorded sessions existed before the
	// row goes away, so it is written while the log is still queryable.
	if err := s.events.LogInstanceDeleted(spanCtx, instance, actor.UserID); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.schedules.DeleteByInstance(spanCtx, instance.ID); err != nil {
		s.logger.Warn().Err(err).Uint("instance_id", instance.ID).Msg("failed to remove calendar entry")
	}

	if err := s.repo.Delete(spanCtx, instance.ID); err != nil {
		span.RecordError(err)
		return err
	}

	s.logger.Info().Uint("instance_id", instance.ID).Msg("instance deleted")
	return nil
}

func (s *instanceService) Get(ctx context.Context, id uint) (models.Instance, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *instanceService) ListByCourse(ctx context.Context, courseID uint) ([]dto.InstanceResponse, error) {
	instances, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewInstanceResponseSlice(instances), nil
}

func (s *instanceService) Schedule(ctx context.Context, courseID uint) ([]dto.ScheduleEntryResponse, error) {
	events, err := s.schedules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return dto.NewScheduleEntryResponseSlice(events), nil
}

func (s *instanceService) AttachPresentation(ctx context.Context, id uint, file *multipart.FileHeader) (dto.InstanceResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "instances.attach_presentation", trace.WithAttributes(
		attribute.Int64("instance.id", int64(id)),
	))
	defer span.End()

	if file == nil {
		return dto.InstanceResponse{}, errors.New("presentation file is required")
	}
	if file.Size > maxPresentationBytes {
		span.RecordError(ErrPresentationTooLarge)
		return dto.InstanceResponse{}, ErrPresentationTooLarge
	}

	instance, err := s.repo.GetByID(spanCtx, id)
	if err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxPresentationBytes+1)); err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}
	if int64(buf.Len()) > maxPresentationBytes {
		span.RecordError(ErrPresentationTooLarge)
		return dto.InstanceResponse{}, ErrPresentationTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("presentation.mime", mime.String()))
	if !isPresentationType(mime.String()) {
		span.RecordError(ErrPresentationTypeNotAllowed)
		return dto.InstanceResponse{}, ErrPresentationTypeNotAllowed
	}

	if s.storage == nil {
		span.RecordError(ErrStorageUnavailable)
		return dto.InstanceResponse{}, ErrStorageUnavailable
	}

	url, err := s.storage.Upload(spanCtx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	instance.PresentationName = file.Filename
	instance.PresentationURL = url
	if err := s.repo.Update(spanCtx, &instance); err != nil {
		span.RecordError(err)
		return dto.InstanceResponse{}, err
	}

	s.logger.Info().Uint("instance_id", instance.ID).Str("file", file.Filename).Msg("presentation attached")
	return dto.NewInstanceResponse(instance), nil
}

// syncSchedule rewrites the calendar entry from the current schedule, or
// removes it when the opening time was cleared.
func (s *instanceService) syncSchedule(ctx context.Context, instance models.Instance) error {
	if instance.OpeningTime == nil {
		return s.schedules.DeleteByInstance(ctx, instance.ID)
	}

	return s.schedules.Upsert(ctx, &models.ScheduledEvent{
		InstanceID:      instance.ID,
		CourseID:        instance.CourseID,
		Name:            instance.Name,
		StartsAt:        *instance.OpeningTime,
		DurationSeconds: instance.DurationSeconds(),
	})
}

func (s *instanceService) notifyUpdate(ctx context.Context, instance models.Instance, message string) {
	if s.notifications == nil {
		return
	}

	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Session details for %q have changed.", instance.Name)
	}

	_, err := s.notifications.Publish(ctx, dto.NotificationCreateRequest{
		Target:  fmt.Sprintf("course-%d", instance.CourseID),
		Type:    "instance_updated",
		Message: message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("instance_id", instance.ID).Msg("failed to publish update notification")
	}
}

// isPresentationType accepts the document types the conferencing provider
// can render as slides.
func isPresentationType(m string) bool {
	lower := strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(lower, "image/") {
		return true
	}
	switch lower {
	case "application/pdf",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.oasis.opendocument.presentation":
		return true
	}
	return false
}

func completionRulesMap(rules map[string]dto.CompletionRuleInput) datatypes.JSONMap {
	if rules == nil {
		return nil
	}

	out := datatypes.JSONMap{}
	for name, rule := range rules {
		out[name] = map[string]interface{}{
			"enabled":   rule.Enabled,
			"threshold": rule.Threshold,
		}
	}
	return out
}
