package models

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	BaseUUIDModel
	Email          string `gorm:"type:text;uniqueIndex;not null" json:"email"`
	HashedPassword string `gorm:"type:text;not null"             json:"-"`
	IsActive       bool   `gorm:"type:bool;default:true"         json:"is_active"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lowercases and trims an address the way every entry point
// must before comparing or storing it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address is plausibly deliverable.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToProfile() UserProfile {
	return UserProfile{
		ID:        u.ID.String(),
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// TokenResponse is the login payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
