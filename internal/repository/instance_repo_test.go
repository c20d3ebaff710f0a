package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/models"
)

func TestInstanceRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t, &models.Instance{})
	repo := NewInstanceRepository(db)

	instance := models.Instance{
		CourseID:        7,
		Name:            "Weekly standup",
		MeetingID:       "mtg-abc",
		ModeratorSecret: "mod",
		ViewerSecret:    "view",
	}
	require.NoError(t, repo.Create(context.Background(), &instance))
	require.NotZero(t, instance.ID)

	stored, err := repo.GetByID(context.Background(), instance.ID)
	require.NoError(t, err)
	require.Equal(t, "mtg-abc", stored.MeetingID)

	stored.Name = "Renamed"
	require.NoError(t, repo.Update(context.Background(), &stored))

	updated, err := repo.GetByID(context.Background(), instance.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)

	require.NoError(t, repo.Delete(context.Background(), instance.ID))
	_, err = repo.GetByID(context.Background(), instance.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInstanceRepositoryListByCourse(t *testing.T) {
	db := setupTestDB(t, &models.Instance{})
	repo := NewInstanceRepository(db)

	for _, instance := range []models.Instance{
		{CourseID: 7, Name: "First", MeetingID: "mtg-1", ModeratorSecret: "m", ViewerSecret: "v"},
		{CourseID: 7, Name: "Second", MeetingID: "mtg-2", ModeratorSecret: "m", ViewerSecret: "v"},
		{CourseID: 9, Name: "Other", MeetingID: "mtg-3", ModeratorSecret: "m", ViewerSecret: "v"},
	} {
		item := instance
		require.NoError(t, repo.Create(context.Background(), &item))
	}

	instances, err := repo.ListByCourse(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, instances, 2)
}

func TestScheduleRepositoryUpsertRewritesSingleEntry(t *testing.T) {
	db := setupTestDB(t, &models.ScheduledEvent{})
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), &models.ScheduledEvent{
		InstanceID: 1, CourseID: 7, Name: "Session", StartsAt: start, DurationSeconds: 3600,
	}))
	require.NoError(t, repo.Upsert(context.Background(), &models.ScheduledEvent{
		InstanceID: 1, CourseID: 7, Name: "Session (moved)", StartsAt: start.Add(time.Hour), DurationSeconds: 1800,
	}))

	events, err := repo.ListByCourse(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Session (moved)", events[0].Name)
	require.Equal(t, 1800, events[0].DurationSeconds)

	require.NoError(t, repo.DeleteByInstance(context.Background(), 1))
	events, err = repo.ListByCourse(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestScheduleRepositoryListByCourseOrdersByStart(t *testing.T) {
	db := setupTestDB(t, &models.ScheduledEvent{})
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), &models.ScheduledEvent{
		InstanceID: 2, CourseID: 7, Name: "Later", StartsAt: start.Add(2 * time.Hour),
	}))
	require.NoError(t, repo.Upsert(context.Background(), &models.ScheduledEvent{
		InstanceID: 1, CourseID: 7, Name: "Earlier", StartsAt: start,
	}))
	require.NoError(t, repo.Upsert(context.Background(), &models.ScheduledEvent{
		InstanceID: 3, CourseID: 9, Name: "Other course", StartsAt: start,
	}))

	events, err := repo.ListByCourse(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Earlier", events[0].Name)
	require.Equal(t, "Later", events[1].Name)
}

func TestNotificationRepositoryListAndMarkRead(t *testing.T) {
	db := setupTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)

	first := models.Notification{Target: "course-7", Type: "instance_updated", Message: "moved"}
	second := models.Notification{Target: "course-7", Type: "instance_updated", Message: "cancelled"}
	other := models.Notification{Target: "course-9", Type: "generic", Message: "hi"}
	require.NoError(t, repo.Create(context.Background(), &first))
	require.NoError(t, repo.Create(context.Background(), &second))
	require.NoError(t, repo.Create(context.Background(), &other))

	notifications, err := repo.ListByTarget(context.Background(), "course-7", 10, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	read, err := repo.MarkRead(context.Background(), first.ID, "course-7")
	require.NoError(t, err)
	require.True(t, read.Read)

	// Marking with the wrong target must not succeed.
	_, err = repo.MarkRead(context.Background(), second.ID, "course-9")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
