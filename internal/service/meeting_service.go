package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/observability"
	"github.com/noah-isme/aula-go-api/pkg/bigbluebutton"
)

var (
	// ErrProviderFailed is returned when the conferencing provider reports a
	// failure code for a create or poll call.
	ErrProviderFailed = errors.New("conferencing provider rejected the request")
	// ErrMeetingEnded is returned when the provider reports the session was
	// forcibly ended and cannot be rejoined.
	ErrMeetingEnded = errors.New("session was forcibly ended on the provider")
)

// MeetingState is the availability of a session for one join attempt.
type MeetingState string

const (
	StateNotYetOpen      MeetingState = "not_yet_open"
	StateJoinableDirect  MeetingState = "joinable"
	StateJoinableWaiting MeetingState = "waiting"
	StateClosed          MeetingState = "closed"
)

// Actor is the authenticated user attempting an operation, passed explicitly
// into every call instead of read from ambient state.
type Actor struct {
	UserID      uint
	DisplayName string
	IsAdmin     bool
	IsModerator bool
}

func (a Actor) canModerate() bool {
	return a.IsAdmin || a.IsModerator
}

// JoinResult is the outcome of one join attempt.
type JoinResult struct {
	State        MeetingState
	JoinURL      string
	OpeningTime  *time.Time
	ClosingTime  *time.Time
	PollInterval time.Duration
	Recordings   []bigbluebutton.Recording
}

// StateFor computes the availability state for a join attempt. It is a pure
// function of the clock, the instance schedule and the actor's privileges;
// no state machine instance is ever persisted.
//
// An absent opening or closing time means "no bound" on that side.
func StateFor(now time.Time, instance models.Instance, actor Actor) MeetingState {
	if instance.OpeningTime != nil && now.Before(*instance.OpeningTime) {
		return StateNotYetOpen
	}
	if instance.ClosingTime != nil && now.After(*instance.ClosingTime) {
		return StateClosed
	}
	if actor.canModerate() || !instance.WaitForModerator {
		return StateJoinableDirect
	}
	return StateJoinableWaiting
}

// MeetingService drives the join protocol against the conferencing provider
// and records the resulting lifecycle events.
type MeetingService interface {
	Join(ctx context.Context, instance models.Instance, actor Actor, groupID uint, origin int) (JoinResult, error)
	IsRunning(ctx context.Context, instance models.Instance, groupID uint) (bool, error)
	Recordings(ctx context.Context, instance models.Instance, groupID uint) ([]bigbluebutton.Recording, error)
	RecordingPlayed(ctx context.Context, instance models.Instance, actor Actor, recordID string) error
	HandleCallback(ctx context.Context, instance models.Instance, recordID, callbackType string) (int64, bool, error)
}

type meetingService struct {
	events       EventLogService
	provider     bigbluebutton.API
	cache        *redis.Client
	cacheTTL     time.Duration
	pollInterval time.Duration
	logoutURL    string
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewMeetingService constructs the session join service.
func NewMeetingService(events EventLogService, provider bigbluebutton.API, cache *redis.Client, cacheTTL, pollInterval time.Duration, logoutURL string, logger zerolog.Logger) MeetingService {
	return &meetingService{
		events:       events,
		provider:     provider,
		cache:        cache,
		cacheTTL:     cacheTTL,
		pollInterval: pollInterval,
		logoutURL:    logoutURL,
		logger:       logger.With().Str("component", "meeting_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/aula-go-api/internal/service/meeting"),
		now:          time.Now,
	}
}

func (s *meetingService) Join(ctx context.Context, instance models.Instance, actor Actor, groupID uint, origin int) (JoinResult, error) {
	state := StateFor(s.now(), instance, actor)
	observability.JoinAttempts().WithLabelValues(string(state)).Inc()

	spanCtx, span := s.tracer.Start(ctx, "meetings.join", trace.WithAttributes(
		attribute.Int64("instance.id", int64(instance.ID)),
		attribute.String("meeting.state", string(state)),
	))
	defer span.End()

	switch state {
	case StateNotYetOpen:
		return JoinResult{State: state, OpeningTime: instance.OpeningTime, ClosingTime: instance.ClosingTime}, nil
	case StateClosed:
		recordings, err := s.Recordings(spanCtx, instance, groupID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("instance_id", instance.ID).Msg("failed to list recordings for closed session")
			recordings = nil
		}
		return JoinResult{State: state, OpeningTime: instance.OpeningTime, ClosingTime: instance.ClosingTime, Recordings: recordings}, nil
	case StateJoinableDirect:
		return s.joinDirect(spanCtx, instance, actor, groupID, origin)
	default:
		return s.joinWaiting(spanCtx, instance, actor, groupID, origin)
	}
}

// joinDirect creates the session on the provider (a no-op when it is already
// running) and hands out a join link immediately. The Create and Join entries
// are only written after the provider call has succeeded, so a failed attempt
// leaves the log reading "nothing happened".
func (s *meetingService) joinDirect(ctx context.Context, instance models.Instance, actor Actor, groupID uint, origin int) (JoinResult, error) {
	meetingID := instance.ComposedMeetingID(groupID)

	result, err := s.provider.CreateSession(ctx, bigbluebutton.CreateSessionRequest{
		MeetingID:        meetingID,
		Name:             instance.Name,
		Welcome:          s.welcomeFor(instance),
		ModeratorSecret:  instance.ModeratorSecret,
		ViewerSecret:     instance.ViewerSecret,
		LogoutURL:        s.logoutURL,
		Record:           instance.RecordingEnabled,
		DurationMinutes:  instance.DurationSeconds() / 60,
		PresentationName: instance.PresentationName,
		PresentationURL:  instance.PresentationURL,
		Metadata: map[string]string{
			"context":  fmt.Sprintf("course-%d", instance.CourseID),
			"activity": instance.Name,
		},
	})
	if err != nil {
		return JoinResult{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if !result.Success {
		return JoinResult{}, fmt.Errorf("%w: %s", ErrProviderFailed, result.MessageKey)
	}
	if result.MeetingEnded {
		return JoinResult{}, ErrMeetingEnded
	}

	if err := s.events.LogMeetingCreated(ctx, instance, actor.UserID, meetingID); err != nil {
		return JoinResult{}, err
	}
	if err := s.events.LogMeetingJoined(ctx, instance, actor.UserID, meetingID, origin); err != nil {
		return JoinResult{}, err
	}

	secret := instance.ViewerSecret
	if actor.canModerate() {
		secret = instance.ModeratorSecret
	}

	return JoinResult{
		State:       StateJoinableDirect,
		JoinURL:     s.provider.JoinURL(meetingID, actor.DisplayName, secret, actor.UserID),
		OpeningTime: instance.OpeningTime,
		ClosingTime: instance.ClosingTime,
	}, nil
}

// joinWaiting only hands out a join link once a moderator has opened the
// session. Until then nothing is logged and the caller keeps polling.
func (s *meetingService) joinWaiting(ctx context.Context, instance models.Instance, actor Actor, groupID uint, origin int) (JoinResult, error) {
	meetingID := instance.ComposedMeetingID(groupID)

	running, err := s.provider.IsSessionRunning(ctx, meetingID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	result := JoinResult{
		State:        StateJoinableWaiting,
		OpeningTime:  instance.OpeningTime,
		ClosingTime:  instance.ClosingTime,
		PollInterval: s.pollInterval,
	}

	if !running {
		return result, nil
	}

	if err := s.events.LogMeetingJoined(ctx, instance, actor.UserID, meetingID, origin); err != nil {
		return JoinResult{}, err
	}

	result.JoinURL = s.provider.JoinURL(meetingID, actor.DisplayName, instance.ViewerSecret, actor.UserID)
	return result, nil
}

func (s *meetingService) IsRunning(ctx context.Context, instance models.Instance, groupID uint) (bool, error) {
	running, err := s.provider.IsSessionRunning(ctx, instance.ComposedMeetingID(groupID))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return running, nil
}

func (s *meetingService) Recordings(ctx context.Context, instance models.Instance, groupID uint) ([]bigbluebutton.Recording, error) {
	meetingID := instance.ComposedMeetingID(groupID)
	cacheKey := fmt.Sprintf("recordings:%s", meetingID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var recordings []bigbluebutton.Recording
			if unmarshalErr := json.Unmarshal([]byte(cached), &recordings); unmarshalErr == nil {
				s.logger.Debug().Str("meeting_id", meetingID).Msg("recordings cache hit")
				return recordings, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read recordings cache")
		}
	}

	recordings, err := s.provider.ListRecordings(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(recordings); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store recordings cache")
			}
		}
	}

	return recordings, nil
}

func (s *meetingService) RecordingPlayed(ctx context.Context, instance models.Instance, actor Actor, recordID string) error {
	return s.events.LogRecordingPlayed(ctx, instance, actor.UserID, recordID)
}

// HandleCallback processes one asynchronous provider notification. A record
// already counted for the same callback type is a replay: it is still logged
// for the audit trail but reported as a duplicate so ingestion is skipped.
func (s *meetingService) HandleCallback(ctx context.Context, instance models.Instance, recordID, callbackType string) (int64, bool, error) {
	seen, err := s.events.CountCallbackEvents(ctx, recordID, callbackType)
	if err != nil {
		return 0, false, err
	}

	if _, err := s.events.LogEventCallback(ctx, instance, recordID, callbackType); err != nil {
		return 0, false, err
	}

	count, err := s.events.CountCallbackEvents(ctx, recordID, callbackType)
	if err != nil {
		return 0, false, err
	}

	if seen > 0 {
		observability.CallbackDuplicates().Inc()
		s.logger.Info().Str("record_id", recordID).Str("callback", callbackType).Msg("duplicate provider callback skipped")
		return count, true, nil
	}

	return count, false, nil
}

func (s *meetingService) welcomeFor(instance models.Instance) string {
	welcome := instance.Welcome
	if instance.RecordingEnabled {
		if welcome != "" {
			welcome += "\n\n"
		}
		welcome += "This session may be recorded."
	}
	return welcome
}
