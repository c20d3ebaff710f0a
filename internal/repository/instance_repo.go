package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// InstanceRepository persists conferencing activity instances.
type InstanceRepository interface {
	Create(ctx context.Context, instance *models.Instance) error
	Update(ctx context.Context, instance *models.Instance) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.Instance, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Instance, error)
}

type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository constructs the instance repository.
func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

func (r *instanceRepository) Create(ctx context.Context, instance *models.Instance) error {
	return r.db.WithContext(ctx).Create(instance).Error
}

func (r *instanceRepository) Update(ctx context.Context, instance *models.Instance) error {
	return r.db.WithContext(ctx).Save(instance).Error
}

func (r *instanceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Instance{}, id).Error
}

func (r *instanceRepository) GetByID(ctx context.Context, id uint) (models.Instance, error) {
	var instance models.Instance
	if err := r.db.WithContext(ctx).First(&instance, id).Error; err != nil {
		return models.Instance{}, err
	}
	return instance, nil
}

func (r *instanceRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Instance, error) {
	var instances []models.Instance
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&instances).Error
	if err != nil {
		return nil, err
	}
	return instances, nil
}
