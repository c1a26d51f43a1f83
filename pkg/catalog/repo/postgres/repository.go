package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements catalog.Repository using PostgreSQL
type Repository struct {
	db  DBTX
	now func() time.Time
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db, now: time.Now}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS catalog_entry (
	id             UUID PRIMARY KEY,
	title          VARCHAR(50)  NOT NULL DEFAULT '',
	description    VARCHAR(200) NOT NULL DEFAULT '',
	thumbnail_refs TEXT[]       NOT NULL DEFAULT '{}',
	video_refs     TEXT[]       NOT NULL DEFAULT '{}',
	owner_id       TEXT         NOT NULL,
	created_at     TIMESTAMPTZ  NOT NULL,
	updated_at     TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_catalog_entry_created_at ON catalog_entry (created_at DESC, id);
`

// EnsureSchema creates the catalog table when it does not exist
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure catalog schema: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("entry already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%w: value too long for %s", catalog.ErrInvalidField, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const entryColumns = `id, title, description, thumbnail_refs, video_refs, owner_id, created_at, updated_at`

func (r *Repository) CreateEntry(ctx context.Context, entry *catalog.Entry) error {
	now := r.now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	query := `INSERT INTO catalog_entry (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.Title, entry.Description,
		nonNil(entry.ThumbnailRefs), nonNil(entry.VideoRefs),
		entry.OwnerID, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create entry", err)
	}

	return nil
}

func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (*catalog.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entry WHERE id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get entry", err)
	}
	return entry, nil
}

func (r *Repository) ListEntries(ctx context.Context) ([]*catalog.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entry ORDER BY created_at DESC, id`
	return r.queryEntries(ctx, "list entries", query)
}

// SearchEntries matches title as a case-insensitive substring; LIKE
// metacharacters in title are matched literally
func (r *Repository) SearchEntries(ctx context.Context, title string) ([]*catalog.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM catalog_entry
		WHERE title ILIKE $1 ESCAPE '\'
		ORDER BY created_at DESC, id`
	return r.queryEntries(ctx, "search entries", query, "%"+escapeLike(title)+"%")
}

func (r *Repository) UpdateEntry(ctx context.Context, id uuid.UUID, patch catalog.EntryPatch) (*catalog.Entry, error) {
	query := `
		UPDATE catalog_entry SET
			title          = COALESCE($2, title),
			description    = COALESCE($3, description),
			thumbnail_refs = COALESCE($4, thumbnail_refs),
			video_refs     = COALESCE($5, video_refs),
			updated_at     = $6
		WHERE id = $1
		RETURNING ` + entryColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query,
		id, patch.Title, patch.Description,
		patch.ThumbnailRefs, patch.VideoRefs, r.now().UTC()))
	if err != nil {
		return nil, r.handlePostgresError("update entry", err)
	}
	return entry, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, id uuid.UUID) (*catalog.Entry, error) {
	query := `DELETE FROM catalog_entry WHERE id = $1 RETURNING ` + entryColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("delete entry", err)
	}
	return entry, nil
}

func (r *Repository) queryEntries(ctx context.Context, operation, query string, args ...interface{}) ([]*catalog.Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	entries := []*catalog.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*catalog.Entry, error) {
	var e catalog.Entry
	err := row.Scan(&e.ID, &e.Title, &e.Description,
		&e.ThumbnailRefs, &e.VideoRefs, &e.OwnerID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nonNil(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}
