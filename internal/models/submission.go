package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission status values. A submission is accepted as pending, picked up by
// the judge worker as judging, and ends scored or failed.
const (
	SubmissionStatusPending = "pending"
	SubmissionStatusJudging = "judging"
	SubmissionStatusScored  = "scored"
	SubmissionStatusFailed  = "failed"
)

// Submission is one user-submitted solution prompt for a task. Result holds
// the raw structured judge reply and is set exactly once, after asynchronous
// evaluation completes.
type Submission struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ReferenceID    string         `gorm:"size:36;uniqueIndex;not null" json:"reference_id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	TaskID         uint           `gorm:"not null;index" json:"task_id"`
	SolutionPrompt string         `gorm:"type:text" json:"solution_prompt"`
	UserImageURL   string         `gorm:"size:512" json:"user_image_url"`
	Status         string         `gorm:"size:16;not null" json:"status"`
	Result         datatypes.JSON `json:"result"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Task           Task           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
	User           AppUser        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// HasResult reports whether the asynchronous evaluation has completed.
func (s Submission) HasResult() bool {
	return len(s.Result) > 0
}
