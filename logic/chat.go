package logic

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/acskang/endless-openrouter/dao"
	"github.com/acskang/endless-openrouter/models"
	"github.com/acskang/endless-openrouter/pkg"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrQuotaExceeded  = errors.New("API call limit reached")
)

// Completer is the completion-provider dependency of the chat pipeline
type Completer interface {
	Complete(ctx context.Context, history []pkg.Turn, userMessage string) (string, error)
	Model() string
}

// ChatResult is the outcome of a successfully handled message
type ChatResult struct {
	Question     *models.Question
	Response     *models.Response
	Cached       bool
	ResponseTime float64 // seconds, zero for cached answers
}

// ChatLogic drives a user message through validation, quota, question
// dedup, the response cache and the completion provider
type ChatLogic struct {
	userDAO          *dao.UserDAO
	questionDAO      *dao.QuestionDAO
	responseDAO      *dao.ResponseDAO
	completer        Completer
	maxMessageLength int
	logger           *zap.Logger
}

func NewChatLogic(
	userDAO *dao.UserDAO,
	questionDAO *dao.QuestionDAO,
	responseDAO *dao.ResponseDAO,
	completer Completer,
	maxMessageLength int,
	logger *zap.Logger,
) *ChatLogic {
	return &ChatLogic{
		userDAO:          userDAO,
		questionDAO:      questionDAO,
		responseDAO:      responseDAO,
		completer:        completer,
		maxMessageLength: maxMessageLength,
		logger:           logger,
	}
}

// HandleMessage runs one inbound message through the pipeline. A cached
// answer never consumes quota. A provider call charges the quota before
// the call and the charge is not rolled back on failure. onProviderCall,
// when non-nil, fires right before the provider round trip so transports
// can surface a typing indicator.
func (l *ChatLogic) HandleMessage(
	ctx context.Context,
	userID uint64,
	message string,
	history []pkg.Turn,
	onProviderCall func(),
) (*ChatResult, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > l.maxMessageLength {
		return nil, ErrMessageTooLong
	}

	// Existence check only. Quota is not inspected here: a stored answer
	// must stay reachable even for an exhausted user, so the charge waits
	// until the provider-call branch below.
	if _, err := l.userDAO.GetUserByID(userID); err != nil {
		return nil, err
	}

	question, err := l.questionDAO.GetOrCreate(userID, trimmed)
	if err != nil {
		return nil, err
	}

	existing, err := l.responseDAO.Latest(question.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		l.logger.Info("served cached response",
			zap.Uint64("user_id", userID),
			zap.Uint64("question_id", question.ID),
			zap.Uint64("response_id", existing.ID))
		return &ChatResult{Question: question, Response: existing, Cached: true}, nil
	}

	ok, err := l.userDAO.ConsumeQuota(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrQuotaExceeded
	}

	if onProviderCall != nil {
		onProviderCall()
	}

	start := time.Now()
	answer, err := l.completer.Complete(ctx, history, trimmed)
	responseTime := roundSeconds(time.Since(start))
	if err != nil {
		l.logger.Warn("completion call failed",
			zap.Uint64("user_id", userID),
			zap.Uint64("question_id", question.ID),
			zap.Error(err))
		return nil, err
	}

	response, err := l.responseDAO.Save(question.ID, answer, l.completer.Model(), responseTime)
	if err != nil {
		return nil, err
	}

	l.logger.Info("generated new response",
		zap.Uint64("user_id", userID),
		zap.Uint64("question_id", question.ID),
		zap.Uint64("response_id", response.ID),
		zap.Float64("response_time", responseTime))
	return &ChatResult{Question: question, Response: response, Cached: false, ResponseTime: responseTime}, nil
}

// SelectResponse marks a response as the chosen one among its siblings
func (l *ChatLogic) SelectResponse(responseID uint64) error {
	return l.responseDAO.Select(responseID)
}

// RateResponse records a 1-5 rating on a response
func (l *ChatLogic) RateResponse(responseID uint64, rating int) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return l.responseDAO.Rate(responseID, rating)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
