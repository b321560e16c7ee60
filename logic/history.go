package logic

import (
	"time"
)

// HistoryEntry is one line of the reconstructed conversation
type HistoryEntry struct {
	Role       string    `json:"role"` // "user" or "assistant"
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	QuestionID uint64    `json:"question_id,omitempty"`
	ResponseID uint64    `json:"response_id,omitempty"`
	AIModel    string    `json:"ai_model,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
}

// Pagination carries page metadata for history responses
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
	TotalItems  int64 `json:"total_items"`
}

// ChatHistory returns a page of the user's conversation. Questions are
// paginated newest-first; within the page, entries come back oldest-first
// as alternating user/assistant lines, each question followed by its
// latest stored response when one exists.
func (l *ChatLogic) ChatHistory(userID uint64, page, pageSize int) ([]HistoryEntry, *Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	questions, total, err := l.questionDAO.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, nil, err
	}

	questionIDs := make([]uint64, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}
	latest, err := l.responseDAO.LatestByQuestionIDs(questionIDs)
	if err != nil {
		return nil, nil, err
	}

	history := make([]HistoryEntry, 0, len(questions)*2)
	for i := len(questions) - 1; i >= 0; i-- {
		q := questions[i]
		history = append(history, HistoryEntry{
			Role:       "user",
			Content:    q.Content,
			Timestamp:  q.CreatedAt,
			QuestionID: q.ID,
		})
		if r, ok := latest[q.ID]; ok {
			history = append(history, HistoryEntry{
				Role:       "assistant",
				Content:    r.Content,
				Timestamp:  r.CreatedAt,
				ResponseID: r.ID,
				AIModel:    r.AIModel,
				Cached:     true,
			})
		}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	pagination := &Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
		TotalItems:  total,
	}
	return history, pagination, nil
}
