package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names a user's permission class
type Role string

const (
	RoleUser         Role = "user"
	RolePhotographer Role = "photographer"
)

// ParseRole normalizes a role name; empty means RoleUser
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, true
	case RolePhotographer:
		return RolePhotographer, true
	default:
		return "", false
	}
}

// User is a registered account
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest contains the fields submitted when signing up
type RegisterRequest struct {
	Email           string `validate:"required,email,max=254"`
	Password        string `validate:"required,min=8,max=72"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Role            string `validate:"omitempty,oneof=user photographer"`
}

var (
	// ErrUserExists indicates the email is already registered
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound indicates no user matches the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials indicates an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserRepository persists users
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
