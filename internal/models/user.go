package models

import (
	"strings"
	"time"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
	UserStatusPending  UserStatus = "pending"
)

// User represents a field worker account
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"displayName"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// EffectiveDisplayName returns the name reports are attributed to: the
// display name when set, otherwise the email.
func (u *User) EffectiveDisplayName() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.Email
}

// AuthTokens represents the tokens returned after authentication
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"` // seconds
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User      *User       `json:"user"`
	Tokens    *AuthTokens `json:"tokens"`
	IsNewUser bool        `json:"isNewUser,omitempty"`
}

// SignupParams represents email signup parameters
type SignupParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginParams represents email login parameters
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshParams represents a token refresh request
type RefreshParams struct {
	RefreshToken string `json:"refreshToken"`
}

// CreateUserParams represents parameters for creating a user
type CreateUserParams struct {
	Email       string     `json:"email"`
	Password    string     `json:"-"`
	DisplayName string     `json:"displayName"`
	Status      UserStatus `json:"status,omitempty"`
}

// UpdateUserParams changes stored account fields. Nil fields are left as is.
type UpdateUserParams struct {
	DisplayName  *string
	PasswordHash *string
}

// UpdateProfileParams is a profile edit. Changing the password requires the
// current one and a matching confirmation.
type UpdateProfileParams struct {
	DisplayName     *string `json:"displayName,omitempty"`
	CurrentPassword string  `json:"currentPassword,omitempty"`
	NewPassword     string  `json:"newPassword,omitempty"`
	ConfirmPassword string  `json:"confirmPassword,omitempty"`
}

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
