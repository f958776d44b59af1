package dto

import (
	"time"

	"github.com/promptpal/promptpal-api/internal/models"
)

// UserCreateRequest registers a new challenge participant.
type UserCreateRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=255"`
}

// UserResponse is the public representation of a participant.
type UserResponse struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	CachedScore *float64  `json:"cached_score"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserResponse maps a user model to its API representation.
func NewUserResponse(user models.AppUser) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		CachedScore: user.CachedScore,
		CreatedAt:   user.CreatedAt,
	}
}
