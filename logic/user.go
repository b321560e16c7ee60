package logic

import (
	"errors"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/acskang/endless-openrouter/config"
	"github.com/acskang/endless-openrouter/dao"
	"github.com/acskang/endless-openrouter/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already taken")
)

// UserLogic handles account and session business logic
type UserLogic struct {
	userDAO *dao.UserDAO
	// sessionEpoch is generated once per process start. Tokens carry it as
	// a claim; tokens minted by a previous process are rejected, which
	// forces re-login after a restart without any global state.
	sessionEpoch string
	logger       *zap.Logger
}

func NewUserLogic(userDAO *dao.UserDAO, sessionEpoch string, logger *zap.Logger) *UserLogic {
	return &UserLogic{
		userDAO:      userDAO,
		sessionEpoch: sessionEpoch,
		logger:       logger,
	}
}

// SessionEpoch returns the epoch token tokens must carry to be valid
func (l *UserLogic) SessionEpoch() string {
	return l.sessionEpoch
}

// Signup registers a new account and returns it with a login token
func (l *UserLogic) Signup(email, username, password string) (*models.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if _, err := l.userDAO.GetUserByEmail(email); err == nil {
		return nil, "", time.Time{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", time.Time{}, err
	}
	if _, err := l.userDAO.GetUserByUsername(username); err == nil {
		return nil, "", time.Time{}, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", time.Time{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user, err := l.userDAO.CreateUser(email, username, string(hash), int64(config.GlobalConfig.Quota.DefaultLimit))
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", time.Time{}, ErrEmailTaken
		}
		return nil, "", time.Time{}, err
	}
	l.logger.Info("user registered", zap.Uint64("user_id", user.ID), zap.String("username", username))

	token, expireAt, err := l.generateJWT(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expireAt, nil
}

// Login authenticates by email and password and returns a fresh token
func (l *UserLogic) Login(email, password string) (*models.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := l.userDAO.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expireAt, err := l.generateJWT(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	l.logger.Info("user logged in", zap.Uint64("user_id", user.ID))
	return user, token, expireAt, nil
}

// GetUser retrieves account info
func (l *UserLogic) GetUser(userID uint64) (*models.User, error) {
	return l.userDAO.GetUserByID(userID)
}

// ResetQuota zeroes the user's call counter and stamps the reset time
func (l *UserLogic) ResetQuota(userID uint64) (*models.User, error) {
	if err := l.userDAO.ResetQuota(userID); err != nil {
		return nil, err
	}
	l.logger.Info("quota reset", zap.Uint64("user_id", userID))
	return l.userDAO.GetUserByID(userID)
}

func (l *UserLogic) generateJWT(userID uint64) (string, time.Time, error) {
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.Auth.ExpHour) * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"epoch":   l.sessionEpoch,
		"exp":     expireAt.Unix(),
	})
	tokenString, err := token.SignedString([]byte(config.GlobalConfig.Auth.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expireAt, nil
}
