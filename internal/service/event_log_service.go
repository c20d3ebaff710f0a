package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/repository"
)

var (
	// ErrInvalidEventType is returned when an entry carries an event type
	// outside the closed enumeration.
	ErrInvalidEventType = errors.New("unrecognised event type")
	// ErrMissingLogContext is returned when an entry lacks the denormalised
	// instance, course or meeting identity.
	ErrMissingLogContext = errors.New("log entry requires instance, course and meeting context")
)

// LogEntry is the write-side shape of one meeting event.
type LogEntry struct {
	InstanceID uint
	CourseID   uint
	UserID     uint
	MeetingID  string
	EventType  models.EventType
	Metadata   map[string]interface{}
	// CreatedAt overrides the write timestamp; zero means "now".
	CreatedAt time.Time
}

// EventLogService is the append-only meeting event log plus the queries
// derived from it. Entries are immutable once written.
type EventLogService interface {
	Append(ctx context.Context, entry LogEntry) (models.MeetingLog, error)
	Query(ctx context.Context, instanceID uint, filter repository.MeetingLogFilter) ([]models.MeetingLog, error)
	Count(ctx context.Context, instanceID uint, filter repository.MeetingLogFilter) (int64, error)
	UserSummaryLogs(ctx context.Context, instanceID, userID uint) ([]models.MeetingLog, error)
	CountCallbackEvents(ctx context.Context, recordID, callbackType string) (int64, error)

	LogInstanceCreated(ctx context.Context, instance models.Instance, userID uint) error
	LogInstanceUpdated(ctx context.Context, instance models.Instance, userID uint) error
	LogInstanceDeleted(ctx context.Context, instance models.Instance, userID uint) error
	LogMeetingCreated(ctx context.Context, instance models.Instance, userID uint, meetingID string) error
	LogMeetingJoined(ctx context.Context, instance models.Instance, userID uint, meetingID string, origin int) error
	LogRecordingPlayed(ctx context.Context, instance models.Instance, userID uint, recordID string) error
	LogEventCallback(ctx context.Context, instance models.Instance, recordID, callbackType string) (int64, error)
	LogEventSummary(ctx context.Context, instance models.Instance, userID uint, origin, durationMinutes int, engagement map[string]int) error
}

type eventLogService struct {
	repo   repository.MeetingLogRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewEventLogService constructs the meeting event log service.
func NewEventLogService(repo repository.MeetingLogRepository, logger zerolog.Logger) EventLogService {
	return &eventLogService{
		repo:   repo,
		logger: logger.With().Str("component", "event_log_service").Logger(),
		now:    time.Now,
	}
}

func (s *eventLogService) Append(ctx context.Context, entry LogEntry) (models.MeetingLog, error) {
	if !entry.EventType.Valid() {
		return models.MeetingLog{}, fmt.Errorf("%w: %q", ErrInvalidEventType, entry.EventType)
	}
	if entry.InstanceID == 0 || entry.CourseID == 0 || entry.MeetingID == "" {
		return models.MeetingLog{}, ErrMissingLogContext
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	metadata := datatypes.JSONMap{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}

	model := models.MeetingLog{
		InstanceID: entry.InstanceID,
		CourseID:   entry.CourseID,
		UserID:     entry.UserID,
		MeetingID:  entry.MeetingID,
		EventType:  entry.EventType,
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("event", string(entry.EventType)).Msg("failed to append meeting log entry")
		return models.MeetingLog{}, err
	}

	return model, nil
}

func (s *eventLogService) Query(ctx context.Context, instanceID uint, filter repository.MeetingLogFilter) ([]models.MeetingLog, error) {
	return s.repo.List(ctx, instanceID, filter)
}

func (s *eventLogService) Count(ctx context.Context, instanceID uint, filter repository.MeetingLogFilter) (int64, error) {
	return s.repo.Count(ctx, instanceID, filter)
}

func (s *eventLogService) UserSummaryLogs(ctx context.Context, instanceID, userID uint) ([]models.MeetingLog, error) {
	return s.repo.List(ctx, instanceID, repository.MeetingLogFilter{
		EventType: models.EventSummary,
		UserID:    &userID,
	})
}

// CountCallbackEvents counts distinct Callback entries recorded for the given
// provider record id. Entries written before the callback field existed carry
// no such key and are assumed to be recording_ready; that fallback applies to
// recording_ready only and must not be extended to other callback types.
func (s *eventLogService) CountCallbackEvents(ctx context.Context, recordID, callbackType string) (int64, error) {
	entries, err := s.repo.ListCallbacks(ctx, recordID)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, entry := range entries {
		value, present := entry.Metadata[models.MetaCallback]
		if callbackType == models.CallbackRecordingReady {
			if !present || fmt.Sprint(value) == models.CallbackRecordingReady {
				count++
			}
			continue
		}
		if present && fmt.Sprint(value) == callbackType {
			count++
		}
	}

	return count, nil
}

func (s *eventLogService) LogInstanceCreated(ctx context.Context, instance models.Instance, userID uint) error {
	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  instance.MeetingID,
		EventType:  models.EventAdd,
	})
	return err
}

func (s *eventLogService) LogInstanceUpdated(ctx context.Context, instance models.Instance, userID uint) error {
	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  instance.MeetingID,
		EventType:  models.EventEdit,
	})
	return err
}

// LogInstanceDeleted records the deletion together with whether any recorded
// session ever ran, so the history keeps that fact after the instance row is
// gone.
func (s *eventLogService) LogInstanceDeleted(ctx context.Context, instance models.Instance, userID uint) error {
	recorded, err := s.repo.Count(ctx, instance.ID, repository.MeetingLogFilter{
		EventType: models.EventCreate,
		Metadata:  map[string]interface{}{models.MetaRecord: true},
	})
	if err != nil {
		return err
	}

	_, err = s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  instance.MeetingID,
		EventType:  models.EventDelete,
		Metadata:   map[string]interface{}{models.MetaHasRecording: recorded > 0},
	})
	return err
}

func (s *eventLogService) LogMeetingCreated(ctx context.Context, instance models.Instance, userID uint, meetingID string) error {
	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  meetingID,
		EventType:  models.EventCreate,
		Metadata:   map[string]interface{}{models.MetaRecord: instance.RecordingEnabled},
	})
	return err
}

func (s *eventLogService) LogMeetingJoined(ctx context.Context, instance models.Instance, userID uint, meetingID string, origin int) error {
	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  meetingID,
		EventType:  models.EventJoin,
		Metadata:   map[string]interface{}{models.MetaOrigin: origin},
	})
	return err
}

func (s *eventLogService) LogRecordingPlayed(ctx context.Context, instance models.Instance, userID uint, recordID string) error {
	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  instance.MeetingID,
		EventType:  models.EventPlayed,
		Metadata:   map[string]interface{}{models.MetaRecordID: recordID},
	})
	return err
}

// LogEventCallback appends the callback entry and returns the new count of
// meeting_events callbacks for the record, which callers use to detect
// replayed notifications.
func (s *eventLogService) LogEventCallback(ctx context.Context, instance models.Instance, recordID, callbackType string) (int64, error) {
	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		MeetingID:  instance.MeetingID,
		EventType:  models.EventCallback,
		Metadata: map[string]interface{}{
			models.MetaRecordID: recordID,
			models.MetaCallback: callbackType,
		},
	})
	if err != nil {
		return 0, err
	}

	return s.CountCallbackEvents(ctx, recordID, models.CallbackMeetingEvents)
}

func (s *eventLogService) LogEventSummary(ctx context.Context, instance models.Instance, userID uint, origin, durationMinutes int, engagement map[string]int) error {
	engagementMeta := make(map[string]interface{}, len(engagement))
	for metric, value := range engagement {
		engagementMeta[metric] = value
	}

	_, err := s.Append(ctx, LogEntry{
		InstanceID: instance.ID,
		CourseID:   instance.CourseID,
		UserID:     userID,
		MeetingID:  instance.MeetingID,
		EventType:  models.EventSummary,
		Metadata: map[string]interface{}{
			models.MetaOrigin: origin,
			models.MetaData: map[string]interface{}{
				models.MetaDuration:   durationMinutes,
				models.MetaEngagement: engagementMeta,
			},
		},
	})
	return err
}
