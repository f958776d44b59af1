package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
)

// UserRepository exposes persistence helpers for challenge participants.
type UserRepository interface {
	Create(ctx context.Context, user *models.AppUser) error
	GetByID(ctx context.Context, id uint) (models.AppUser, error)
	GetByEmail(ctx context.Context, email string) (models.AppUser, error)
	List(ctx context.Context) ([]models.AppUser, error)
	UpdateCachedScore(ctx context.Context, id uint, score *float64) error
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *models.AppUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.AppUser, error) {
	var user models.AppUser
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.AppUser{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.AppUser, error) {
	var user models.AppUser
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.AppUser{}, err
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.AppUser, error) {
	var users []models.AppUser
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateCachedScore(ctx context.Context, id uint, score *float64) error {
	return r.db.WithContext(ctx).
		Model(&models.AppUser{}).
		Where("id = ?", id).
		Update("cached_score", score).Error
}
