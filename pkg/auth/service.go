package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"golang.org/x/crypto/bcrypt"
)

// Service registers users and authenticates them
type Service struct {
	users    UserRepository
	tokens   *Tokens
	validate *validator.Validate
	cost     int
	logger   *slog.Logger
	now      func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates an auth service over users, issuing tokens with tokens
func NewService(users UserRepository, tokens *Tokens, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user repository is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}

	s := &Service{
		users:    users,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cost:     bcrypt.DefaultCost,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens returns the issuer the service signs with
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates a user and returns it with a fresh token
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, string, error) {
	req.Email = NormalizeEmail(req.Email)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	if err := s.validate.Struct(req); err != nil {
		return nil, "", toFieldErrors(err)
	}
	role, _ := ParseRole(req.Role)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "role", string(user.Role))
	return user, token, nil
}

// Login checks credentials and returns the user with a fresh token
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	} else if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func toFieldErrors(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fes := make(catalog.FieldErrors, 0, len(ve))
	for _, e := range ve {
		fes = append(fes, &catalog.FieldError{
			Field: toSnake(e.StructField()),
			Rule:  e.Tag(),
			Param: e.Param(),
		})
	}
	return fes
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
