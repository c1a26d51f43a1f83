package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-catalog/pkg/auth"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements auth.UserRepository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL user repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL user repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS app_user (
	id            UUID PRIMARY KEY,
	email         VARCHAR(254) NOT NULL UNIQUE,
	password_hash TEXT         NOT NULL,
	role          VARCHAR(32)  NOT NULL DEFAULT 'user',
	created_at    TIMESTAMPTZ  NOT NULL,
	updated_at    TIMESTAMPTZ  NOT NULL
);
`

// EnsureSchema creates the user table when it does not exist
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure user schema: %w", err)
	}
	return nil
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.ErrUserNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return auth.ErrUserExists
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const userColumns = `id, email, password_hash, role, created_at, updated_at`

func (r *Repository) CreateUser(ctx context.Context, user *auth.User) error {
	query := `INSERT INTO app_user (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		user.ID, auth.NormalizeEmail(user.Email), user.PasswordHash,
		string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create user", err)
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE email = $1`
	return r.scanUser("get user by email", r.db.QueryRow(ctx, query, auth.NormalizeEmail(email)))
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`
	return r.scanUser("get user", r.db.QueryRow(ctx, query, id))
}

func (r *Repository) scanUser(operation string, row pgx.Row) (*auth.User, error) {
	var u auth.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}
