package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-catalog/pkg/auth"
)

// Repository implements auth.UserRepository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*auth.User
	byEmail map[string]uuid.UUID
}

// New creates a new in-memory user repository
func New() *Repository {
	return &Repository{
		users:   make(map[uuid.UUID]*auth.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *Repository) CreateUser(ctx context.Context, user *auth.User) error {
	email := auth.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return auth.ErrUserExists
	}
	if _, exists := r.users[user.ID]; exists {
		return auth.ErrUserExists
	}

	userCopy := *user
	userCopy.Email = email
	r.users[user.ID] = &userCopy
	r.byEmail[email] = user.ID
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[auth.NormalizeEmail(email)]
	if !exists {
		return nil, auth.ErrUserNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, auth.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}
