package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
)

// StreakRepository exposes persistence helpers for user streak records.
type StreakRepository interface {
	GetByUser(ctx context.Context, userID uint) (models.UserStreak, error)
	Create(ctx context.Context, streak *models.UserStreak) error
	Update(ctx context.Context, streak *models.UserStreak) error
	// ListActive returns streak records with currentStreak > 0, ordered by
	// currentStreak DESC, longestStreak DESC, user id ASC.
	ListActive(ctx context.Context, limit int) ([]models.UserStreak, error)
}

// NewStreakRepository constructs a streak repository.
func NewStreakRepository(db *gorm.DB) StreakRepository {
	return &streakRepository{db: db}
}

type streakRepository struct {
	db *gorm.DB
}

func (r *streakRepository) GetByUser(ctx context.Context, userID uint) (models.UserStreak, error) {
	var streak models.UserStreak
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error; err != nil {
		return models.UserStreak{}, err
	}
	return streak, nil
}

func (r *streakRepository) Create(ctx context.Context, streak *models.UserStreak) error {
	return r.db.WithContext(ctx).Create(streak).Error
}

func (r *streakRepository) Update(ctx context.Context, streak *models.UserStreak) error {
	return r.db.WithContext(ctx).Save(streak).Error
}

func (r *streakRepository) ListActive(ctx context.Context, limit int) ([]models.UserStreak, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("current_streak > 0").
		Order("current_streak DESC, longest_streak DESC, user_id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var streaks []models.UserStreak
	if err := query.Find(&streaks).Error; err != nil {
		return nil, err
	}
	return streaks, nil
}
