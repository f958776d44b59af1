package dto

import (
	"encoding/json"
	"time"

	"github.com/promptpal/promptpal-api/internal/models"
)

// SubmitSolutionRequest is the payload for submitting a solution prompt.
type SubmitSolutionRequest struct {
	TaskID         uint   `json:"task_id" validate:"required,gt=0"`
	SolutionPrompt string `json:"solution_prompt" validate:"required"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
// Result is null while the asynchronous evaluation is still pending.
type SubmissionResponse struct {
	ID           uint            `json:"id"`
	ReferenceID  string          `json:"reference_id"`
	UserID       uint            `json:"user_id"`
	TaskID       uint            `json:"task_id"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	UserImageURL string          `json:"user_image_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewSubmissionResponse maps a submission model to its API representation.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	var result json.RawMessage
	if submission.HasResult() {
		result = json.RawMessage(submission.Result)
	}

	return SubmissionResponse{
		ID:           submission.ID,
		ReferenceID:  submission.ReferenceID,
		UserID:       submission.UserID,
		TaskID:       submission.TaskID,
		Status:       submission.Status,
		Result:       result,
		UserImageURL: submission.UserImageURL,
		CreatedAt:    submission.CreatedAt,
	}
}
