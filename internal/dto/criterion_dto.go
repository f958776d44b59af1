package dto

import (
	"strconv"

	"github.com/promptpal/promptpal-api/internal/models"
)

// CriterionResponse is the public representation of one rubric criterion.
// Ids are rendered as strings because judge replies key on them.
type CriterionResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Subquestions []SubquestionResponse `json:"subquestions"`
}

// SubquestionResponse is one scored question inside a criterion.
type SubquestionResponse struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// NewCriterionResponses maps rubric models to their API representation.
func NewCriterionResponses(criteria []models.Criterion) []CriterionResponse {
	responses := make([]CriterionResponse, 0, len(criteria))
	for _, criterion := range criteria {
		subquestions := make([]SubquestionResponse, 0, len(criterion.Subquestions))
		for _, subquestion := range criterion.Subquestions {
			subquestions = append(subquestions, SubquestionResponse{
				ID:       strconv.FormatUint(uint64(subquestion.ID), 10),
				Question: subquestion.Question,
			})
		}
		responses = append(responses, CriterionResponse{
			ID:           strconv.FormatUint(uint64(criterion.ID), 10),
			Name:         criterion.Name,
			Subquestions: subquestions,
		})
	}
	return responses
}
