package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
)

// TaskScoreFilter narrows task score queries.
type TaskScoreFilter struct {
	UserID        *uint
	ExcludeUserID *uint
	CompletedOnly bool
}

// TaskScoreRepository exposes persistence helpers for per-(user, task) score
// records.
type TaskScoreRepository interface {
	GetByUserAndTask(ctx context.Context, userID, taskID uint) (models.TaskScore, error)
	Save(ctx context.Context, score *models.TaskScore) error
	List(ctx context.Context, filter TaskScoreFilter) ([]models.TaskScore, error)
}

// NewTaskScoreRepository constructs a task score repository.
func NewTaskScoreRepository(db *gorm.DB) TaskScoreRepository {
	return &taskScoreRepository{db: db}
}

type taskScoreRepository struct {
	db *gorm.DB
}

func (r *taskScoreRepository) GetByUserAndTask(ctx context.Context, userID, taskID uint) (models.TaskScore, error) {
	var score models.TaskScore
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("task_id = ?", taskID).
		First(&score).Error
	if err != nil {
		return models.TaskScore{}, err
	}
	return score, nil
}

func (r *taskScoreRepository) Save(ctx context.Context, score *models.TaskScore) error {
	return r.db.WithContext(ctx).Save(score).Error
}

func (r *taskScoreRepository) List(ctx context.Context, filter TaskScoreFilter) ([]models.TaskScore, error) {
	query := r.db.WithContext(ctx).Model(&models.TaskScore{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ExcludeUserID != nil {
		query = query.Where("user_id <> ?", *filter.ExcludeUserID)
	}
	if filter.CompletedOnly {
		query = query.Where("is_completed = ?", true)
	}

	var scores []models.TaskScore
	if err := query.Order("task_id ASC, user_id ASC").Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}
