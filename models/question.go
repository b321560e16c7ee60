package models

import (
	"time"
)

// Question type tags. Metadata only, no behavior attached.
const (
	QuestionTypeText  = "text"
	QuestionTypeImage = "image"
	QuestionTypeFile  = "file"
)

// Question is a user's submitted text, deduplicated per owner on the
// normalized (trimmed, lowercased) content.
type Question struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint64    `gorm:"not null;index:idx_questions_user_created;uniqueIndex:uq_questions_user_content" json:"user_id"`
	Content           string    `gorm:"not null" json:"content"`
	NormalizedContent string    `gorm:"not null;uniqueIndex:uq_questions_user_content" json:"-"`
	QuestionType      string    `gorm:"not null;default:text" json:"question_type"`
	IsProcessed       bool      `gorm:"not null;default:false" json:"is_processed"`
	IsDeleted         bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt         time.Time `gorm:"index:idx_questions_user_created" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
