package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/models"
	"github.com/promptpal/promptpal-api/internal/repository"
)

// ErrEmptyRubric indicates no criteria with subquestions are published, so
// evaluation cannot proceed.
var ErrEmptyRubric = errors.New("rubric has no criteria with subquestions")

// RubricService loads the grading rubric and derives the strict response
// schema the external judge must conform to.
type RubricService interface {
	LoadRubric(ctx context.Context) ([]models.Criterion, error)
	// BuildResponseSchema produces a JSON schema keyed by criterion and
	// subquestion id, requiring a numeric score and string feedback per leaf
	// and forbidding additional properties everywhere.
	BuildResponseSchema(rubric []models.Criterion) (json.RawMessage, error)
	// BuildValidationSchema is the lenient variant used to validate replies
	// locally: structure and ids must still match, but a null or absent
	// score is tolerated since it defaults to the minimum during scoring.
	BuildValidationSchema(rubric []models.Criterion) (json.RawMessage, error)
	// RubricJSON serializes the rubric (ids + questions) for embedding into
	// judge instructions.
	RubricJSON(rubric []models.Criterion) (json.RawMessage, error)
}

type rubricService struct {
	criteria repository.CriterionRepository
	logger   zerolog.Logger
}

// NewRubricService constructs a rubric service.
func NewRubricService(criteria repository.CriterionRepository, logger zerolog.Logger) RubricService {
	return &rubricService{
		criteria: criteria,
		logger:   logger.With().Str("component", "rubric_service").Logger(),
	}
}

func (s *rubricService) LoadRubric(ctx context.Context) ([]models.Criterion, error) {
	rubric, err := s.criteria.ListWithSubquestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rubric: %w", err)
	}
	if len(rubric) == 0 {
		return nil, ErrEmptyRubric
	}
	return rubric, nil
}

type schemaObject struct {
	Type                 string                 `json:"type"`
	Properties           map[string]interface{} `json:"properties"`
	Required             []string               `json:"required"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func newSchemaObject() *schemaObject {
	return &schemaObject{
		Type:       "object",
		Properties: map[string]interface{}{},
		Required:   []string{},
	}
}

func (s *rubricService) BuildResponseSchema(rubric []models.Criterion) (json.RawMessage, error) {
	return s.buildSchema(rubric, false)
}

func (s *rubricService) BuildValidationSchema(rubric []models.Criterion) (json.RawMessage, error) {
	return s.buildSchema(rubric, true)
}

func (s *rubricService) buildSchema(rubric []models.Criterion, lenient bool) (json.RawMessage, error) {
	if len(rubric) == 0 {
		return nil, ErrEmptyRubric
	}

	scoreType := interface{}("number")
	leafRequired := []string{"score", "feedback"}
	if lenient {
		scoreType = []string{"number", "null"}
		leafRequired = []string{}
	}

	criteriaSchema := newSchemaObject()
	for _, criterion := range rubric {
		subquestionsSchema := newSchemaObject()
		for _, subquestion := range criterion.Subquestions {
			id := formatID(subquestion.ID)
			subquestionsSchema.Properties[id] = map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"score":    map[string]interface{}{"type": scoreType},
					"feedback": map[string]interface{}{"type": "string"},
				},
				"required":             leafRequired,
				"additionalProperties": false,
			}
			subquestionsSchema.Required = append(subquestionsSchema.Required, id)
		}

		id := formatID(criterion.ID)
		criteriaSchema.Properties[id] = map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"subquestions": subquestionsSchema,
			},
			"required":             []string{"subquestions"},
			"additionalProperties": false,
		}
		criteriaSchema.Required = append(criteriaSchema.Required, id)
	}

	schema := newSchemaObject()
	schema.Properties["criteria"] = criteriaSchema
	schema.Required = []string{"criteria"}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}
	return raw, nil
}

func (s *rubricService) RubricJSON(rubric []models.Criterion) (json.RawMessage, error) {
	type subquestionDoc struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	}
	type criterionDoc struct {
		ID           string           `json:"id"`
		Name         string           `json:"name"`
		Subquestions []subquestionDoc `json:"subquestions"`
	}

	docs := make([]criterionDoc, 0, len(rubric))
	for _, criterion := range rubric {
		doc := criterionDoc{
			ID:   formatID(criterion.ID),
			Name: criterion.Name,
		}
		for _, subquestion := range criterion.Subquestions {
			doc.Subquestions = append(doc.Subquestions, subquestionDoc{
				ID:       formatID(subquestion.ID),
				Question: subquestion.Question,
			})
		}
		docs = append(docs, doc)
	}

	raw, err := json.Marshal(map[string]interface{}{"criteria": docs})
	if err != nil {
		return nil, fmt.Errorf("marshal rubric: %w", err)
	}
	return raw, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
