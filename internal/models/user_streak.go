package models

import "time"

// UserStreak tracks consecutive-day engagement for one user. Dates are stored
// as plain YYYY-MM-DD strings computed in the configured server timezone so
// day comparisons never shift across midnight boundaries.
type UserStreak struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	CurrentStreak      int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak      int       `gorm:"not null;default:0" json:"longest_streak"`
	TotalCompletedDays int       `gorm:"not null;default:0" json:"total_completed_days"`
	LastCompletionDate *string   `gorm:"size:10" json:"last_completion_date"`
	StreakStartDate    *string   `gorm:"size:10" json:"streak_start_date"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	User               AppUser   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}
