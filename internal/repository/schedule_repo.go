package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// ScheduleRepository persists the calendar entries owned by instances.
type ScheduleRepository interface {
	Upsert(ctx context.Context, event *models.ScheduledEvent) error
	DeleteByInstance(ctx context.Context, instanceID uint) error
	ListByCourse(ctx context.Context, courseID uint) ([]models.ScheduledEvent, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository constructs the schedule repository.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Upsert(ctx context.Context, event *models.ScheduledEvent) error {
	var existing models.ScheduledEvent
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", event.InstanceID).
		First(&existing).Error

	switch {
	case err == nil:
		event.ID = existing.ID
		event.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(event).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(event).Error
	default:
		return err
	}
}

func (r *scheduleRepository) DeleteByInstance(ctx context.Context, instanceID uint) error {
	return r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Delete(&models.ScheduledEvent{}).Error
}

func (r *scheduleRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.ScheduledEvent, error) {
	var events []models.ScheduledEvent
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("starts_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
