package dto

import "github.com/promptpal/promptpal-api/internal/models"

// StreakResponse is a user's current streak state.
type StreakResponse struct {
	CurrentStreak      int     `json:"current_streak"`
	LongestStreak      int     `json:"longest_streak"`
	TotalCompletedDays int     `json:"total_completed_days"`
	LastCompletionDate *string `json:"last_completion_date"`
	StreakStartDate    *string `json:"streak_start_date"`
}

// NewStreakResponse maps a streak model to its API representation.
func NewStreakResponse(streak models.UserStreak) StreakResponse {
	return StreakResponse{
		CurrentStreak:      streak.CurrentStreak,
		LongestStreak:      streak.LongestStreak,
		TotalCompletedDays: streak.TotalCompletedDays,
		LastCompletionDate: streak.LastCompletionDate,
		StreakStartDate:    streak.StreakStartDate,
	}
}

// LeaderboardEntry is one row of the streak leaderboard.
type LeaderboardEntry struct {
	UserID             uint   `json:"user_id"`
	Name               string `json:"name"`
	CurrentStreak      int    `json:"current_streak"`
	LongestStreak      int    `json:"longest_streak"`
	TotalCompletedDays int    `json:"total_completed_days"`
}
