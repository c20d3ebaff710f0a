package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// NotificationRepository persists notifications targeted at users or course channels.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByTarget(ctx context.Context, target string, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uint, target string) (models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs the notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByTarget(ctx context.Context, target string, limit, offset int) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("target = ?", target).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, target string) (models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND target = ?", id, target).
		First(&notification).Error
	if err != nil {
		return models.Notification{}, err
	}

	notification.Read = true
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}
