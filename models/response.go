package models

import (
	"time"
)

// Response type tags. Metadata only, no behavior attached.
const (
	ResponseTypeText     = "text"
	ResponseTypeCode     = "code"
	ResponseTypeMarkdown = "markdown"
	ResponseTypeJSON     = "json"
	ResponseTypeError    = "error"
)

// Response is a stored completion-provider answer tied to a Question.
// ResponseOrder is 1-based and unique within a question.
type Response struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestionID    uint64    `gorm:"not null;index;uniqueIndex:uq_responses_question_order" json:"question_id"`
	Content       string    `gorm:"not null" json:"content"`
	AIModel       string    `gorm:"not null" json:"ai_model"`
	ResponseType  string    `gorm:"not null;default:text" json:"response_type"`
	ResponseTime  float64   `json:"response_time"`
	TokenCount    *int      `json:"token_count,omitempty"`
	UserRating    *int      `json:"user_rating,omitempty"` // 1-5
	ResponseOrder int       `gorm:"not null;uniqueIndex:uq_responses_question_order" json:"response_order"`
	IsSelected    bool      `gorm:"not null;default:false" json:"is_selected"`
	IsDeleted     bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Question Question `gorm:"foreignKey:QuestionID" json:"-"`
}
