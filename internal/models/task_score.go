package models

import "time"

// TaskScore is the persisted best result for one (user, task) pair.
//
// Attempts counts applied evaluations. Score, PercentageScore, SubmissionID
// and CompletedAt are overwritten only when a new attempt scores strictly
// higher than the stored value, so the stored score never decreases.
// LastAppliedSubmissionID guards against double-counting an attempt when the
// same judge result is redelivered.
type TaskScore struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	UserID                  uint       `gorm:"not null;uniqueIndex:idx_task_scores_user_task" json:"user_id"`
	TaskID                  uint       `gorm:"not null;uniqueIndex:idx_task_scores_user_task" json:"task_id"`
	Score                   float64    `gorm:"not null" json:"score"`
	PercentageScore         int        `gorm:"not null" json:"percentage_score"`
	Attempts                int        `gorm:"not null;default:0" json:"attempts"`
	IsCompleted             bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt             *time.Time `json:"completed_at"`
	SubmissionID            *uint      `json:"submission_id"`
	LastAppliedSubmissionID *uint      `json:"-"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}
