package dao

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/acskang/endless-openrouter/models"
	"github.com/google/uuid"
)

// UserDAO handles user-related database operations
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

// CreateUser creates a new user with a fresh API key and the given quota limit
func (d *UserDAO) CreateUser(email, username, passwordHash string, callsLimit int64) (*models.User, error) {
	user := &models.User{
		Email:           email,
		Username:        username,
		PasswordHash:    passwordHash,
		APIKey:          fmt.Sprintf("ak_%s", uuid.New().String()[:24]),
		APICallsLimit:   callsLimit,
		APICallsResetAt: time.Now(),
	}
	if err := d.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by primary key
func (d *UserDAO) GetUserByID(id uint64) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (d *UserDAO) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (d *UserDAO) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ConsumeQuota charges one provider call against the user's quota.
// The check and the increment are a single conditional UPDATE, so two
// concurrent calls can never both succeed on the last remaining unit.
// Returns false when the quota is already exhausted.
func (d *UserDAO) ConsumeQuota(userID uint64) (bool, error) {
	result := d.db.Model(&models.User{}).
		Where("id = ? AND api_calls_count < api_calls_limit", userID).
		Updates(map[string]interface{}{
			"api_calls_count":  gorm.Expr("api_calls_count + 1"),
			"last_api_call_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ResetQuota zeroes the user's call counter and stamps the reset time
func (d *UserDAO) ResetQuota(userID uint64) error {
	return d.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"api_calls_count":    0,
			"api_calls_reset_at": time.Now(),
		}).Error
}
