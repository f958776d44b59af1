package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
)

// CriterionRepository exposes read access to the grading rubric.
type CriterionRepository interface {
	// ListWithSubquestions returns criteria that carry at least one
	// subquestion, with subquestions ordered by position.
	ListWithSubquestions(ctx context.Context) ([]models.Criterion, error)
	List(ctx context.Context) ([]models.Criterion, error)
}

// NewCriterionRepository constructs a criterion repository.
func NewCriterionRepository(db *gorm.DB) CriterionRepository {
	return &criterionRepository{db: db}
}

type criterionRepository struct {
	db *gorm.DB
}

func (r *criterionRepository) ListWithSubquestions(ctx context.Context) ([]models.Criterion, error) {
	criteria, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	withSubquestions := make([]models.Criterion, 0, len(criteria))
	for _, criterion := range criteria {
		if len(criterion.Subquestions) > 0 {
			withSubquestions = append(withSubquestions, criterion)
		}
	}
	return withSubquestions, nil
}

func (r *criterionRepository) List(ctx context.Context) ([]models.Criterion, error) {
	var criteria []models.Criterion
	err := r.db.WithContext(ctx).
		Preload("Subquestions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Order("id ASC").
		Find(&criteria).Error
	if err != nil {
		return nil, err
	}
	return criteria, nil
}
