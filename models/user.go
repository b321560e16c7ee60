package models

import (
	"time"
)

// User represents an account with a per-user API call quota
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	Nickname     string `json:"nickname"`
	APIKey       string `gorm:"uniqueIndex" json:"api_key"`
	// No column default: a zero limit must be stored as zero. The signup
	// default comes from config and is passed into CreateUser explicitly.
	APICallsLimit   int64      `gorm:"not null" json:"api_calls_limit"`
	APICallsCount   int64      `gorm:"not null;default:0" json:"api_calls_count"`
	APICallsResetAt time.Time  `json:"api_calls_reset_at"`
	LastAPICallAt   *time.Time `json:"last_api_call_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// APICallsRemaining returns how many provider calls the user has left
func (u *User) APICallsRemaining() int64 {
	remaining := u.APICallsLimit - u.APICallsCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanMakeAPICall reports whether the user is under their quota.
// This is advisory only; the authoritative check happens in the
// conditional UPDATE that charges the quota.
func (u *User) CanMakeAPICall() bool {
	return u.APICallsCount < u.APICallsLimit
}
