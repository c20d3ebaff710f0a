package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// MeetingLogFilter narrows log queries to exact matches. Zero values mean "no
// constraint" for that dimension.
type MeetingLogFilter struct {
	EventType models.EventType
	UserID    *uint
	Metadata  map[string]interface{}
}

// MeetingLogRepository persists the append-only meeting event log. Entries are
// never updated; deletion only happens through whole-table maintenance outside
// this service.
type MeetingLogRepository interface {
	Create(ctx context.Context, entry *models.MeetingLog) error
	List(ctx context.Context, instanceID uint, filter MeetingLogFilter) ([]models.MeetingLog, error)
	Count(ctx context.Context, instanceID uint, filter MeetingLogFilter) (int64, error)
	ListCallbacks(ctx context.Context, recordID string) ([]models.MeetingLog, error)
}

type meetingLogRepository struct {
	db *gorm.DB
}

// NewMeetingLogRepository constructs the meeting log repository.
func NewMeetingLogRepository(db *gorm.DB) MeetingLogRepository {
	return &meetingLogRepository{db: db}
}

func (r *meetingLogRepository) Create(ctx context.Context, entry *models.MeetingLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *meetingLogRepository) List(ctx context.Context, instanceID uint, filter MeetingLogFilter) ([]models.MeetingLog, error) {
	var entries []models.MeetingLog
	err := r.filtered(ctx, instanceID, filter).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *meetingLogRepository) Count(ctx context.Context, instanceID uint, filter MeetingLogFilter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, instanceID, filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListCallbacks returns every Callback entry recorded for the given provider
// record id, across all instances, in insertion order.
func (r *meetingLogRepository) ListCallbacks(ctx context.Context, recordID string) ([]models.MeetingLog, error) {
	var entries []models.MeetingLog
	err := r.db.WithContext(ctx).
		Where("event_type = ?", models.EventCallback).
		Where(datatypes.JSONQuery("metadata").Equals(recordID, models.MetaRecordID)).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *meetingLogRepository) filtered(ctx context.Context, instanceID uint, filter MeetingLogFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.MeetingLog{}).Where("instance_id = ?", instanceID)

	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	for key, value := range filter.Metadata {
		query = query.Where(datatypes.JSONQuery("metadata").Equals(value, key))
	}

	return query
}
