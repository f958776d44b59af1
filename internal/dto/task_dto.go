package dto

import "github.com/promptpal/promptpal-api/internal/models"

// TaskResponse is the public representation of a challenge task. The ideal
// prompt is only included where the caller is allowed to see it.
type TaskResponse struct {
	ID                uint    `json:"id"`
	Name              string  `json:"name"`
	Question          string  `json:"question"`
	Kind              string  `json:"kind"`
	ImageURL          string  `json:"image_url,omitempty"`
	ReferenceImageURL string  `json:"reference_image_url,omitempty"`
	ActiveDate        *string `json:"active_date"`
}

// NewTaskResponse maps a task model to its API representation.
func NewTaskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:                task.ID,
		Name:              task.Name,
		Question:          task.Question,
		Kind:              task.Kind,
		ImageURL:          task.ImageURL,
		ReferenceImageURL: task.ReferenceImageURL,
		ActiveDate:        task.ActiveDate,
	}
}

// NewTaskResponses maps a slice of task models.
func NewTaskResponses(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}
	return responses
}
