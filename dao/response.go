package dao

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/acskang/endless-openrouter/models"
)

// ResponseDAO handles response-related database operations
type ResponseDAO struct {
	db *gorm.DB
}

func NewResponseDAO(db *gorm.DB) *ResponseDAO {
	return &ResponseDAO{db: db}
}

// GetByID retrieves a response by primary key
func (d *ResponseDAO) GetByID(id uint64) (*models.Response, error) {
	var response models.Response
	if err := d.db.First(&response, id).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

// Latest returns the most recently created live response for the question,
// or nil when the question has none
func (d *ResponseDAO) Latest(questionID uint64) (*models.Response, error) {
	var response models.Response
	err := d.db.Where("question_id = ? AND is_deleted = ?", questionID, false).
		Order("created_at DESC, id DESC").
		First(&response).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// Save stores a provider answer for the question. Identical content
// (case-insensitive) already stored for the same question is returned
// instead of duplicated. The response order is assigned as max+1 inside a
// transaction; the unique (question_id, response_order) index turns a
// concurrent double-assignment into a retry. Saving marks the parent
// question processed.
func (d *ResponseDAO) Save(questionID uint64, content, aiModel string, responseTime float64) (*models.Response, error) {
	trimmed := strings.TrimSpace(content)

	response, err := d.trySave(questionID, trimmed, aiModel, responseTime)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer took our order slot between the max lookup and
		// the insert; one retry recomputes the order.
		response, err = d.trySave(questionID, trimmed, aiModel, responseTime)
	}
	if err != nil {
		return nil, err
	}

	if err := d.db.Model(&models.Question{}).
		Where("id = ? AND is_processed = ?", questionID, false).
		Update("is_processed", true).Error; err != nil {
		return nil, err
	}
	return response, nil
}

func (d *ResponseDAO) trySave(questionID uint64, content, aiModel string, responseTime float64) (*models.Response, error) {
	var response *models.Response
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Response
		err := tx.Where("question_id = ? AND LOWER(content) = LOWER(?) AND is_deleted = ?",
			questionID, content, false).
			First(&existing).Error
		if err == nil {
			response = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var maxOrder int
		if err := tx.Model(&models.Response{}).
			Where("question_id = ?", questionID).
			Select("COALESCE(MAX(response_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}

		created := &models.Response{
			QuestionID:    questionID,
			Content:       content,
			AIModel:       aiModel,
			ResponseType:  models.ResponseTypeText,
			ResponseTime:  responseTime,
			ResponseOrder: maxOrder + 1,
		}
		if err := tx.Create(created).Error; err != nil {
			return err
		}
		response = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// Select marks the response as the chosen one for its question. The clear
// and the set are a single UPDATE scoped to the question, so no reader can
// observe two selected siblings.
func (d *ResponseDAO) Select(responseID uint64) error {
	var response models.Response
	if err := d.db.First(&response, responseID).Error; err != nil {
		return err
	}
	return d.db.Model(&models.Response{}).
		Where("question_id = ?", response.QuestionID).
		Update("is_selected", gorm.Expr("(id = ?)", responseID)).Error
}

// Rate records a 1-5 user rating on the response
func (d *ResponseDAO) Rate(responseID uint64, rating int) error {
	result := d.db.Model(&models.Response{}).
		Where("id = ?", responseID).
		Update("user_rating", rating)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LatestByQuestionIDs returns the latest live response per question,
// keyed by question ID. Used to assemble chat history pages.
func (d *ResponseDAO) LatestByQuestionIDs(questionIDs []uint64) (map[uint64]models.Response, error) {
	latest := make(map[uint64]models.Response, len(questionIDs))
	if len(questionIDs) == 0 {
		return latest, nil
	}

	var responses []models.Response
	err := d.db.Where("question_id IN ? AND is_deleted = ?", questionIDs, false).
		Order("created_at ASC, id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	// Ascending order means the last write per question wins.
	for _, r := range responses {
		latest[r.QuestionID] = r
	}
	return latest, nil
}
