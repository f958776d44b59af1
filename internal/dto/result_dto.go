package dto

import "github.com/promptpal/promptpal-api/internal/scoring"

// UserResultResponse is the aggregate score for one user's in-scope task set.
type UserResultResponse struct {
	Score       *float64             `json:"score"`
	TaskResults []scoring.TaskResult `json:"taskResults"`
}

// NewUserResultResponse wraps a computed user aggregate.
func NewUserResultResponse(result scoring.UserResult) UserResultResponse {
	return UserResultResponse{
		Score:       result.Score,
		TaskResults: result.TaskResults,
	}
}

// TaskScoreResponse is the persisted best result for one (user, task) pair.
type TaskScoreResponse struct {
	TaskID          uint    `json:"task_id"`
	Score           float64 `json:"score"`
	PercentageScore int     `json:"percentage_score"`
	Attempts        int     `json:"attempts"`
	IsCompleted     bool    `json:"is_completed"`
}
