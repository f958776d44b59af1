package models

import "time"

// AppUser is a challenge participant.
//
// CachedScore mirrors the latest computed user aggregate. It is a cache only;
// the user-results service recomputes the aggregate from submissions on read.
type AppUser struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255" json:"name"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CachedScore *float64  `json:"cached_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
