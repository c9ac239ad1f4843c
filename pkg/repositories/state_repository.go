package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/database"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/retry"
)

// StateRepository stores small named values that expire.
// An expired record reads exactly like a missing one.
type StateRepository interface {
	// Load returns the value stored under name, or apperrors.ErrNotFound.
	Load(ctx context.Context, name string) (string, error)

	// Save writes value under name, valid for ttl from now.
	Save(ctx context.Context, name, value string, ttl time.Duration) error

	// Delete removes name. Deleting a missing record is not an error.
	Delete(ctx context.Context, name string) error
}

// stateRepository implements StateRepository using SQLite.
type stateRepository struct {
	db    *database.DB
	now   func() time.Time
	retry *retry.Config
}

// NewStateRepository creates a SQLite-backed state repository.
// The durable_records table must already exist (see database.RunMigrations).
func NewStateRepository(db *database.DB) StateRepository {
	return &stateRepository{db: db, now: time.Now, retry: retry.DefaultConfig()}
}

func (r *stateRepository) Load(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM durable_records WHERE name = ? AND expires_at > ?`,
		name, r.now().UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load record %q: %w", name, err)
	}
	return value, nil
}

func (r *stateRepository) Save(ctx context.Context, name, value string, ttl time.Duration) error {
	// Another process (the CLI next to a running server) may hold the write lock.
	err := retry.Do(ctx, r.retry, func() error {
		now := r.now()
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO durable_records (name, value, expires_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET
				value = excluded.value,
				expires_at = excluded.expires_at,
				updated_at = excluded.updated_at`,
			name, value, now.Add(ttl).UnixMilli(), now.UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save record %q: %w", name, err)
	}
	return nil
}

func (r *stateRepository) Delete(ctx context.Context, name string) error {
	err := retry.Do(ctx, r.retry, func() error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM durable_records WHERE name = ?`, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %q: %w", name, err)
	}
	return nil
}

// memoryStateRepository implements StateRepository in process memory.
// Used by tests and when no state path is configured.
type memoryStateRepository struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStateRepository creates an in-memory state repository.
func NewMemoryStateRepository() StateRepository {
	return &memoryStateRepository{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (r *memoryStateRepository) Load(_ context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok || !rec.expiresAt.After(r.now()) {
		return "", apperrors.ErrNotFound
	}
	return rec.value, nil
}

func (r *memoryStateRepository) Save(_ context.Context, name, value string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[name] = memoryRecord{value: value, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *memoryStateRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, name)
	return nil
}

// Ensure implementations satisfy StateRepository at compile time.
var (
	_ StateRepository = (*stateRepository)(nil)
	_ StateRepository = (*memoryStateRepository)(nil)
)
