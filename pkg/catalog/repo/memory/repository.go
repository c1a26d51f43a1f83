package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

// Repository implements catalog.Repository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*catalog.Entry
	now     func() time.Time
}

// Option configures the in-memory repository
type Option func(*Repository)

// WithClock replaces the time source used for entry timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a new in-memory repository
func New(opts ...Option) *Repository {
	r := &Repository{
		entries: make(map[uuid.UUID]*catalog.Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateEntry stores a copy of entry, stamping CreatedAt and UpdatedAt when unset
func (r *Repository) CreateEntry(ctx context.Context, entry *catalog.Entry) error {
	now := r.now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s already exists", entry.ID)
	}
	r.entries[entry.ID] = entry.Clone()
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (*catalog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, catalog.ErrNotFound
	}
	return entry.Clone(), nil
}

// ListEntries returns every entry, newest first
func (r *Repository) ListEntries(ctx context.Context) ([]*catalog.Entry, error) {
	return r.snapshot(func(*catalog.Entry) bool { return true }), nil
}

// SearchEntries returns entries whose title contains title, ignoring case
func (r *Repository) SearchEntries(ctx context.Context, title string) ([]*catalog.Entry, error) {
	needle := strings.ToLower(title)
	return r.snapshot(func(e *catalog.Entry) bool {
		return strings.Contains(strings.ToLower(e.Title), needle)
	}), nil
}

func (r *Repository) UpdateEntry(ctx context.Context, id uuid.UUID, patch catalog.EntryPatch) (*catalog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, catalog.ErrNotFound
	}

	updated := entry.Clone()
	patch.Apply(updated)
	updated.UpdatedAt = r.now().UTC()
	r.entries[id] = updated

	return updated.Clone(), nil
}

func (r *Repository) DeleteEntry(ctx context.Context, id uuid.UUID) (*catalog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, catalog.ErrNotFound
	}
	delete(r.entries, id)
	return entry, nil
}

func (r *Repository) snapshot(keep func(*catalog.Entry) bool) []*catalog.Entry {
	r.mu.RLock()
	all := lo.Values(r.entries)
	matched := lo.FilterMap(all, func(e *catalog.Entry, _ int) (*catalog.Entry, bool) {
		if !keep(e) {
			return nil, false
		}
		return e.Clone(), true
	})
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return matched
}
