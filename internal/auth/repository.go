package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/fieldreport/internal/database"
	"github.com/johnrirwin/fieldreport/internal/models"
)

// UserRepository is the account storage the auth service needs.
// *database.UserStore satisfies it.
type UserRepository interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, params models.UpdateUserParams) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) error
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error
}

var _ UserRepository = (*database.UserStore)(nil)

// MemoryUserRepository keeps accounts in process memory. It backs local
// runs without PostgreSQL; accounts are lost on restart.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
	now    func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
		now:    time.Now,
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, params models.CreateUserParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return nil, database.ErrEmailTaken
		}
	}

	status := params.Status
	if status == "" {
		status = models.UserStatusActive
	}
	now := r.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: params.Password,
		DisplayName:  strings.TrimSpace(params.DisplayName),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user

	out := *user
	return &out, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, params models.UpdateUserParams) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if params.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*params.DisplayName)
	}
	if params.PasswordHash != nil {
		u.PasswordHash = *params.PasswordHash
	}
	if params.DisplayName != nil || params.PasswordHash != nil {
		u.UpdatedAt = r.now()
	}

	out := *u
	return &out, nil
}

func (r *MemoryUserRepository) UpdateLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		now := r.now()
		u.LastLoginAt = &now
		u.UpdatedAt = now
	}
	return nil
}

func (r *MemoryUserRepository) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	}
	r.tokens[token.ID] = token

	out := *token
	return &out, nil
}

func (r *MemoryUserRepository) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) RevokeRefreshToken(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tokens[tokenID]; ok && t.RevokedAt == nil {
		now := r.now()
		t.RevokedAt = &now
	}
	return nil
}

func (r *MemoryUserRepository) RevokeAllUserRefreshTokens(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}
