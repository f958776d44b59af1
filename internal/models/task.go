package models

import "time"

// Task kinds determine how submitted solutions are judged.
const (
	TaskKindText  = "text"
	TaskKindImage = "image"
)

// Task is a published prompt-engineering challenge. Tasks are read-only to
// the scoring pipeline once published.
type Task struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"size:255;not null" json:"name"`
	Question          string    `gorm:"type:text;not null" json:"question"`
	IdealPrompt       string    `gorm:"type:text" json:"ideal_prompt"`
	Kind              string    `gorm:"size:16;not null;default:text" json:"kind"`
	ImageURL          string    `gorm:"size:512" json:"image_url"`
	ReferenceImageURL string    `gorm:"size:512" json:"reference_image_url"`
	ActiveDate        *string   `gorm:"size:10;index" json:"active_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsActiveOn reports whether the task is scheduled for the given calendar day
// (YYYY-MM-DD). Tasks without a scheduled day are never part of a daily set.
func (t Task) IsActiveOn(day string) bool {
	return t.ActiveDate != nil && *t.ActiveDate == day
}
