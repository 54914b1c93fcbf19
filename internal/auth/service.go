package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/johnrirwin/fieldreport/internal/config"
	"github.com/johnrirwin/fieldreport/internal/database"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
)

const (
	minPasswordLength    = 8
	minNewPasswordLength = 6
)

// Service handles authentication operations
type Service struct {
	config config.AuthConfig
	users  UserRepository
	clock  clockwork.Clock
	logger *logging.Logger
}

// NewService creates a new auth service
func NewService(users UserRepository, cfg config.AuthConfig, logger *logging.Logger) *Service {
	return NewServiceWithClock(users, cfg, clockwork.NewRealClock(), logger)
}

// NewServiceWithClock creates an auth service with an explicit clock for
// token issue and expiry times.
func NewServiceWithClock(users UserRepository, cfg config.AuthConfig, clock clockwork.Clock, logger *logging.Logger) *Service {
	return &Service{
		config: cfg,
		users:  users,
		clock:  clock,
		logger: logger,
	}
}

// SignupWithEmail creates a new user with email/password
func (s *Service) SignupWithEmail(ctx context.Context, params models.SignupParams) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if email == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "email is required"}
	}
	if !strings.Contains(email, "@") {
		return nil, &AuthError{Code: "invalid_input", Message: "email is invalid"}
	}
	if params.Password == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "password is required"}
	}
	if len(params.Password) < minPasswordLength {
		return nil, &AuthError{Code: "invalid_input", Message: "password must be at least 8 characters"}
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, &AuthError{Code: "user_exists", Message: "a user with this email already exists"}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, models.CreateUserParams{
		Email:       email,
		Password:    string(passwordHash),
		DisplayName: strings.TrimSpace(params.DisplayName),
		Status:      models.UserStatusActive,
	})
	if err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, &AuthError{Code: "user_exists", Message: "a user with this email already exists"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("User signed up with email", logging.WithFields(map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
	}))

	return &models.AuthResponse{
		User:      user,
		Tokens:    tokens,
		IsNewUser: true,
	}, nil
}

// LoginWithEmail authenticates a user with email/password
func (s *Service) LoginWithEmail(ctx context.Context, params models.LoginParams) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if email == "" || params.Password == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "email and password are required"}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid email or password"}
	}

	if user.Status != models.UserStatusActive {
		return nil, &AuthError{Code: "account_disabled", Message: "account is disabled"}
	}

	if user.PasswordHash == "" {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid email or password"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid email or password"}
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to update last login", logging.WithField("error", err.Error()))
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("User logged in with email", logging.WithFields(map[string]interface{}{
		"userId": user.ID,
		"email":  user.Email,
	}))

	return &models.AuthResponse{
		User:   user,
		Tokens: tokens,
	}, nil
}

// RefreshTokens rotates a refresh token and issues a new access token
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, &AuthError{Code: "invalid_input", Message: "refresh token is required"}
	}

	storedToken, err := s.users.GetRefreshTokenByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if storedToken == nil || !storedToken.ExpiresAt.After(s.clock.Now()) {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid or expired refresh token"}
	}

	user, err := s.users.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.Status != models.UserStatusActive {
		return nil, &AuthError{Code: "invalid_token", Message: "user not found or disabled"}
	}

	if err := s.users.RevokeRefreshToken(ctx, storedToken.ID); err != nil {
		s.logger.Warn("Failed to revoke old refresh token", logging.WithField("error", err.Error()))
	}

	tokens, err := s.generateTokens(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// Logout revokes all refresh tokens for a user
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.users.RevokeAllUserRefreshTokens(ctx, userID)
}

// ValidateAccessToken validates a JWT access token and returns the session
// it was issued for.
func (s *Service) ValidateAccessToken(tokenString string) (models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))

	if err != nil {
		return models.Session{}, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Session{}, &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	if iss, _ := claims["iss"].(string); iss != s.config.JWTIssuer {
		return models.Session{}, &AuthError{Code: "invalid_token", Message: "invalid token issuer"}
	}
	if aud, _ := claims["aud"].(string); aud != s.config.JWTAudience {
		return models.Session{}, &AuthError{Code: "invalid_token", Message: "invalid token audience"}
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return models.Session{}, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return models.Session{UserID: userID, DisplayName: name, Email: email}, nil
}

// UpdateProfile changes the user's display name and, when requested, the
// password. The response carries fresh tokens so the session label follows
// the new name. A password change signs out every other session.
func (s *Service) UpdateProfile(ctx context.Context, userID string, params models.UpdateProfileParams) (*models.AuthResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &AuthError{Code: "not_found", Message: "user not found"}
	}
	if user.Status != models.UserStatusActive {
		return nil, &AuthError{Code: "account_disabled", Message: "account is disabled"}
	}

	var update models.UpdateUserParams
	if params.DisplayName != nil {
		name := strings.TrimSpace(*params.DisplayName)
		if name == "" {
			return nil, &AuthError{Code: "invalid_input", Message: "name is required"}
		}
		update.DisplayName = &name
	}

	changingPassword := params.CurrentPassword != "" || params.NewPassword != "" || params.ConfirmPassword != ""
	if changingPassword {
		hash, err := s.newPasswordHash(user, params)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &hash
	}

	updated, err := s.users.Update(ctx, user.ID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if updated == nil {
		return nil, &AuthError{Code: "not_found", Message: "user not found"}
	}

	if changingPassword {
		if err := s.users.RevokeAllUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("Failed to revoke refresh tokens after password change", logging.WithField("error", err.Error()))
		}
	}

	tokens, err := s.generateTokens(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("Profile updated", logging.WithFields(map[string]interface{}{
		"userId":          user.ID,
		"nameChanged":     update.DisplayName != nil,
		"passwordChanged": changingPassword,
	}))

	return &models.AuthResponse{User: updated, Tokens: tokens}, nil
}

func (s *Service) newPasswordHash(user *models.User, params models.UpdateProfileParams) (string, error) {
	if params.CurrentPassword == "" {
		return "", &AuthError{Code: "invalid_input", Message: "current password is required to change password"}
	}
	if params.NewPassword != params.ConfirmPassword {
		return "", &AuthError{Code: "invalid_input", Message: "new passwords do not match"}
	}
	if len(params.NewPassword) < minNewPasswordLength {
		return "", &AuthError{Code: "invalid_input", Message: "new password must be at least 6 characters"}
	}
	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.CurrentPassword)) != nil {
		return "", &AuthError{Code: "wrong_password", Message: "current password is incorrect"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) generateTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	now := s.clock.Now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.DisplayName,
		"iss":   s.config.JWTIssuer,
		"aud":   s.config.JWTAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.AccessTokenTTL).Unix(),
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshTokenBytes := make([]byte, 32)
	if _, err := rand.Read(refreshTokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshTokenString := base64.URLEncoding.EncodeToString(refreshTokenBytes)

	// Only the hash is stored.
	expiresAt := now.Add(s.config.RefreshTokenTTL)
	if _, err := s.users.CreateRefreshToken(ctx, user.ID, hashToken(refreshTokenString), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}
