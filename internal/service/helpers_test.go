package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/aula-go-api/internal/models"
	"github.com/noah-isme/aula-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// memoryLogRepo is an in-memory MeetingLogRepository with the same filter
// semantics as the database-backed one.
type memoryLogRepo struct {
	entries []models.MeetingLog
}

func (m *memoryLogRepo) Create(ctx context.Context, entry *models.MeetingLog) error {
	entry.ID = uint(len(m.entries) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryLogRepo) List(ctx context.Context, instanceID uint, filter repository.MeetingLogFilter) ([]models.MeetingLog, error) {
	var matched []models.MeetingLog
	for _, entry := range m.entries {
		if m.matches(entry, instanceID, filter) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (m *memoryLogRepo) Count(ctx context.Context, instanceID uint, filter repository.MeetingLogFilter) (int64, error) {
	entries, err := m.List(ctx, instanceID, filter)
	return int64(len(entries)), err
}

func (m *memoryLogRepo) ListCallbacks(ctx context.Context, recordID string) ([]models.MeetingLog, error) {
	var matched []models.MeetingLog
	for _, entry := range m.entries {
		if entry.EventType != models.EventCallback {
			continue
		}
		if fmt.Sprint(entry.Metadata[models.MetaRecordID]) == recordID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (m *memoryLogRepo) matches(entry models.MeetingLog, instanceID uint, filter repository.MeetingLogFilter) bool {
	if entry.InstanceID != instanceID {
		return false
	}
	if filter.EventType != "" && entry.EventType != filter.EventType {
		return false
	}
	if filter.UserID != nil && entry.UserID != *filter.UserID {
		return false
	}
	for key, value := range filter.Metadata {
		stored, ok := entry.Metadata[key]
		if !ok || fmt.Sprint(stored) != fmt.Sprint(value) {
			return false
		}
	}
	return true
}

func timePtr(t time.Time) *time.Time {
	return &t
}
