package dao

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/acskang/endless-openrouter/models"
)

// QuestionDAO handles question-related database operations
type QuestionDAO struct {
	db *gorm.DB
}

func NewQuestionDAO(db *gorm.DB) *QuestionDAO {
	return &QuestionDAO{db: db}
}

// NormalizeContent trims surrounding whitespace and lowercases the text.
// Two submissions that normalize to the same string are the same question.
func NormalizeContent(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

// GetOrCreate resolves the question for the given owner and text, creating
// it when no live question with the same normalized content exists. The
// unique (user_id, normalized_content) index makes concurrent submissions
// of identical text converge on one row; the loser of the race re-fetches
// the winner. A soft-deleted row holding the slot is restored instead of
// duplicated.
func (d *QuestionDAO) GetOrCreate(userID uint64, content string) (*models.Question, error) {
	trimmed := strings.TrimSpace(content)
	normalized := NormalizeContent(content)

	existing, err := d.findByNormalized(userID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	question := &models.Question{
		UserID:            userID,
		Content:           trimmed,
		NormalizedContent: normalized,
		QuestionType:      models.QuestionTypeText,
	}
	err = d.db.Create(question).Error
	if err == nil {
		return question, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	// Lost the race (or the slot is held by a soft-deleted row); the
	// conflicting row is the canonical question.
	existing, ferr := d.findByNormalized(userID, normalized)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

// findByNormalized returns the owner's question with the given normalized
// content, restoring it first if it was soft-deleted. Returns nil when no
// such row exists.
func (d *QuestionDAO) findByNormalized(userID uint64, normalized string) (*models.Question, error) {
	var question models.Question
	err := d.db.Where("user_id = ? AND normalized_content = ?", userID, normalized).
		Order("id ASC").
		First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if question.IsDeleted {
		if err := d.db.Model(&question).Update("is_deleted", false).Error; err != nil {
			return nil, err
		}
		question.IsDeleted = false
	}
	return &question, nil
}

// MarkProcessed flags the question as having at least one stored response
func (d *QuestionDAO) MarkProcessed(questionID uint64) error {
	return d.db.Model(&models.Question{}).
		Where("id = ? AND is_processed = ?", questionID, false).
		Update("is_processed", true).Error
}

// SoftDelete hides the question without removing the row
func (d *QuestionDAO) SoftDelete(questionID uint64) error {
	return d.db.Model(&models.Question{}).
		Where("id = ?", questionID).
		Update("is_deleted", true).Error
}

// ListByUser returns the owner's live questions newest-first, paginated,
// plus the total count for pagination metadata
func (d *QuestionDAO) ListByUser(userID uint64, page, pageSize int) ([]models.Question, int64, error) {
	query := d.db.Model(&models.Question{}).
		Where("user_id = ? AND is_deleted = ?", userID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []models.Question
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&questions).Error
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}
