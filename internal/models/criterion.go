package models

import "time"

// Criterion is one rubric dimension a submission is graded against.
type Criterion struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"size:255;not null" json:"name"`
	Subquestions []Subquestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subquestions"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Subquestion is a single scored question inside a criterion.
type Subquestion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CriterionID uint      `gorm:"not null;index" json:"criterion_id"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	Position    int       `gorm:"default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
