package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/models"
)

func setupTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func TestMeetingLogRepositoryListOrdersByInsertion(t *testing.T) {
	db := setupTestDB(t, &models.MeetingLog{})
	repo := NewMeetingLogRepository(db)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, event := range []models.EventType{models.EventAdd, models.EventCreate, models.EventJoin} {
		require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
			InstanceID: 1,
			CourseID:   7,
			UserID:     10,
			MeetingID:  "mtg-abc",
			EventType:  event,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := repo.List(context.Background(), 1, MeetingLogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, models.EventAdd, entries[0].EventType)
	require.Equal(t, models.EventCreate, entries[1].EventType)
	require.Equal(t, models.EventJoin, entries[2].EventType)
}

func TestMeetingLogRepositoryFiltersByEventUserAndMetadata(t *testing.T) {
	db := setupTestDB(t, &models.MeetingLog{})
	repo := NewMeetingLogRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 1, CourseID: 7, UserID: 10, MeetingID: "mtg-abc",
		EventType: models.EventCreate,
		Metadata:  datatypes.JSONMap{models.MetaRecord: true},
	}))
	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 1, CourseID: 7, UserID: 10, MeetingID: "mtg-abc",
		EventType: models.EventCreate,
		Metadata:  datatypes.JSONMap{models.MetaRecord: false},
	}))
	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 1, CourseID: 7, UserID: 11, MeetingID: "mtg-abc",
		EventType: models.EventJoin,
	}))
	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 2, CourseID: 7, UserID: 10, MeetingID: "mtg-def",
		EventType: models.EventCreate,
		Metadata:  datatypes.JSONMap{models.MetaRecord: true},
	}))

	recorded, err := repo.Count(context.Background(), 1, MeetingLogFilter{
		EventType: models.EventCreate,
		Metadata:  map[string]interface{}{models.MetaRecord: true},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), recorded)

	userID := uint(11)
	entries, err := repo.List(context.Background(), 1, MeetingLogFilter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.EventJoin, entries[0].EventType)
}

func TestMeetingLogRepositoryListCallbacksCrossesInstances(t *testing.T) {
	db := setupTestDB(t, &models.MeetingLog{})
	repo := NewMeetingLogRepository(db)

	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 1, CourseID: 7, MeetingID: "mtg-abc",
		EventType: models.EventCallback,
		Metadata: datatypes.JSONMap{
			models.MetaRecordID: "rec-1",
			models.MetaCallback: models.CallbackMeetingEvents,
		},
	}))
	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 2, CourseID: 9, MeetingID: "mtg-def",
		EventType: models.EventCallback,
		Metadata: datatypes.JSONMap{
			models.MetaRecordID: "rec-1",
			models.MetaCallback: models.CallbackRecordingReady,
		},
	}))
	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 1, CourseID: 7, MeetingID: "mtg-abc",
		EventType: models.EventCallback,
		Metadata:  datatypes.JSONMap{models.MetaRecordID: "rec-2"},
	}))
	// A non-callback entry mentioning the record id must not count.
	require.NoError(t, repo.Create(context.Background(), &models.MeetingLog{
		InstanceID: 1, CourseID: 7, MeetingID: "mtg-abc",
		EventType: models.EventPlayed,
		Metadata:  datatypes.JSONMap{models.MetaRecordID: "rec-1"},
	}))

	entries, err := repo.ListCallbacks(context.Background(), "rec-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint(1), entries[0].InstanceID)
	require.Equal(t, uint(2), entries[1].InstanceID)
}
