package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
)

// TaskFilter narrows task queries.
type TaskFilter struct {
	ActiveDate    *string
	ScheduledOnly bool
}

// TaskRepository exposes read access to published tasks.
type TaskRepository interface {
	GetByID(ctx context.Context, id uint) (models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)
}

// NewTaskRepository constructs a task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

type taskRepository struct {
	db *gorm.DB
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.ActiveDate != nil {
		query = query.Where("active_date = ?", *filter.ActiveDate)
	}
	if filter.ScheduledOnly {
		query = query.Where("active_date IS NOT NULL")
	}

	var tasks []models.Task
	if err := query.Order("active_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
