package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/repository"
	"github.com/noah-isme/aula-go-api/pkg/bigbluebutton"
)

type fakeProvider struct {
	createCalls  int
	createResult bigbluebutton.CreateSessionResult
	createErr    error
	running      bool
	runningErr   error
	recordings   []bigbluebutton.Recording
	listCalls    int
}

func (f *fakeProvider) CreateSession(ctx context.Context, req bigbluebutton.CreateSessionRequest) (bigbluebutton.CreateSessionResult, error) {
	f.createCalls++
	return f.createResult, f.createErr
}

func (f *fakeProvider) IsSessionRunning(ctx context.Context, meetingID string) (bool, error) {
	return f.running, f.runningErr
}

func (f *fakeProvider) ListRecordings(ctx context.Context, meetingID string) ([]bigbluebutton.Recording, error) {
	f.listCalls++
	return f.recordings, nil
}

func (f *fakeProvider) JoinURL(meetingID, fullName, secret string, userID uint) string {
	return fmt.Sprintf("https://conf.example/join?meetingID=%s&fullName=%s&secret=%s&userID=%d", meetingID, fullName, secret, userID)
}

func meetingFixture(t *testing.T, provider bigbluebutton.API) (MeetingService, EventLogService) {
	t.Helper()
	events := NewEventLogService(&memoryLogRepo{}, testLogger())
	svc := NewMeetingService(events, provider, nil, time.Minute, 10*time.Second, "https://lms.example/back", testLogger())
	return svc, events
}

func joinableInstance() models.Instance {
	instance := testInstance()
	instance.ModeratorSecret = "mod-secret"
	instance.ViewerSecret = "view-secret"
	return instance
}

func TestStateForSchedulingWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	student := Actor{UserID: 10, DisplayName: "Dana"}
	instance := joinableInstance()

	// No bounds on either side keeps the session permanently joinable.
	require.Equal(t, StateJoinableDirect, StateFor(now, instance, student))

	instance.OpeningTime = timePtr(now.Add(time.Hour))
	require.Equal(t, StateNotYetOpen, StateFor(now, instance, student))

	instance.OpeningTime = timePtr(now.Add(-2 * time.Hour))
	instance.ClosingTime = timePtr(now.Add(-time.Hour))
	require.Equal(t, StateClosed, StateFor(now, instance, student))

	instance.ClosingTime = timePtr(now.Add(time.Hour))
	require.Equal(t, StateJoinableDirect, StateFor(now, instance, student))
}

func TestStateForWaitingRoom(t *testing.T) {
	now := time.Now()
	instance := joinableInstance()
	instance.WaitForModerator = true

	require.Equal(t, StateJoinableWaiting, StateFor(now, instance, Actor{UserID: 10}))
	require.Equal(t, StateJoinableDirect, StateFor(now, instance, Actor{UserID: 11, IsModerator: true}))
	require.Equal(t, StateJoinableDirect, StateFor(now, instance, Actor{UserID: 12, IsAdmin: true}))
}

func TestJoinDirectLogsCreateAndJoinOnce(t *testing.T) {
	provider := &fakeProvider{createResult: bigbluebutton.CreateSessionResult{Success: true}}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()

	result, err := svc.Join(context.Background(), instance, Actor{UserID: 10, DisplayName: "Dana"}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, StateJoinableDirect, result.State)
	require.Contains(t, result.JoinURL, "secret=view-secret")
	require.Equal(t, 1, provider.createCalls)

	created, err := events.Count(context.Background(), instance.ID, repository.MeetingLogFilter{EventType: models.EventCreate})
	require.NoError(t, err)
	require.Equal(t, int64(1), created)

	joined, err := events.Count(context.Background(), instance.ID, repository.MeetingLogFilter{EventType: models.EventJoin})
	require.NoError(t, err)
	require.Equal(t, int64(1), joined)
}

func TestJoinDirectModeratorGetsModeratorLink(t *testing.T) {
	provider := &fakeProvider{createResult: bigbluebutton.CreateSessionResult{Success: true}}
	svc, _ := meetingFixture(t, provider)

	result, err := svc.Join(context.Background(), joinableInstance(), Actor{UserID: 11, DisplayName: "Prof", IsModerator: true}, 0, 0)
	require.NoError(t, err)
	require.Contains(t, result.JoinURL, "secret=mod-secret")
}

func TestJoinProviderFailureWritesNothing(t *testing.T) {
	provider := &fakeProvider{createResult: bigbluebutton.CreateSessionResult{Success: false, MessageKey: "checksumError"}}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()

	_, err := svc.Join(context.Background(), instance, Actor{UserID: 10}, 0, 0)
	require.ErrorIs(t, err, ErrProviderFailed)

	total, err := events.Count(context.Background(), instance.ID, repository.MeetingLogFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestJoinForciblyEndedSession(t *testing.T) {
	provider := &fakeProvider{createResult: bigbluebutton.CreateSessionResult{Success: true, MeetingEnded: true}}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()

	_, err := svc.Join(context.Background(), instance, Actor{UserID: 10}, 0, 0)
	require.ErrorIs(t, err, ErrMeetingEnded)

	total, err := events.Count(context.Background(), instance.ID, repository.MeetingLogFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestJoinWaitingBeforeModeratorArrives(t *testing.T) {
	provider := &fakeProvider{running: false}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()
	instance.WaitForModerator = true

	result, err := svc.Join(context.Background(), instance, Actor{UserID: 10}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, StateJoinableWaiting, result.State)
	require.Empty(t, result.JoinURL)
	require.Equal(t, 10*time.Second, result.PollInterval)
	require.Zero(t, provider.createCalls)

	total, err := events.Count(context.Background(), instance.ID, repository.MeetingLogFilter{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestJoinWaitingOnceSessionRuns(t *testing.T) {
	provider := &fakeProvider{running: true}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()
	instance.WaitForModerator = true

	result, err := svc.Join(context.Background(), instance, Actor{UserID: 10, DisplayName: "Dana"}, 0, 0)
	require.NoError(t, err)
	require.Contains(t, result.JoinURL, "secret=view-secret")

	joined, err := events.Count(context.Background(), instance.ID, repository.MeetingLogFilter{EventType: models.EventJoin})
	require.NoError(t, err)
	require.Equal(t, int64(1), joined)
}

func TestJoinBeforeOpeningReturnsSchedule(t *testing.T) {
	provider := &fakeProvider{}
	svc, _ := meetingFixture(t, provider)
	instance := joinableInstance()
	instance.OpeningTime = timePtr(time.Now().Add(time.Hour))

	result, err := svc.Join(context.Background(), instance, Actor{UserID: 10}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, StateNotYetOpen, result.State)
	require.Empty(t, result.JoinURL)
	require.NotNil(t, result.OpeningTime)
	require.Zero(t, provider.createCalls)
}

func TestJoinSeparateGroupsComposeIdentity(t *testing.T) {
	provider := &fakeProvider{createResult: bigbluebutton.CreateSessionResult{Success: true}}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()
	instance.GroupMode = models.GroupModeSeparate

	result, err := svc.Join(context.Background(), instance, Actor{UserID: 10, DisplayName: "Dana"}, 42, 0)
	require.NoError(t, err)
	require.Contains(t, result.JoinURL, "mtg-abc-7-1[42]")

	entries, err := events.Query(context.Background(), instance.ID, repository.MeetingLogFilter{EventType: models.EventCreate})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "mtg-abc-7-1[42]", entries[0].MeetingID)
}

func TestRecordingsServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider := &fakeProvider{recordings: []bigbluebutton.Recording{{RecordID: "rec-1", Name: "Session"}}}
	events := NewEventLogService(&memoryLogRepo{}, testLogger())
	svc := NewMeetingService(events, provider, client, time.Minute, 10*time.Second, "", testLogger())
	instance := joinableInstance()

	first, err := svc.Recordings(context.Background(), instance, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Recordings(context.Background(), instance, 0)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, provider.listCalls)
}

func TestHandleCallbackFlagsReplays(t *testing.T) {
	provider := &fakeProvider{}
	svc, _ := meetingFixture(t, provider)
	instance := joinableInstance()

	count, duplicate, err := svc.HandleCallback(context.Background(), instance, "rec-1", models.CallbackRecordingReady)
	require.NoError(t, err)
	require.False(t, duplicate)
	require.Equal(t, int64(1), count)

	count, duplicate, err = svc.HandleCallback(context.Background(), instance, "rec-1", models.CallbackRecordingReady)
	require.NoError(t, err)
	require.True(t, duplicate)
	require.Equal(t, int64(2), count)
}

func TestRecordingPlayedLogsEvent(t *testing.T) {
	provider := &fakeProvider{}
	svc, events := meetingFixture(t, provider)
	instance := joinableInstance()

	require.NoError(t, svc.RecordingPlayed(context.Background(), instance, Actor{UserID: 10}, "rec-1"))

	entries, err := events.Query(context.Background(), instance.ID, repository.MeetingLogFilter{EventType: models.EventPlayed})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "rec-1", entries[0].Metadata[models.MetaRecordID])
}
