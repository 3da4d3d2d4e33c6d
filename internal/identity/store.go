package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/database"
)

// SQLiteStore keeps board settings in the board_settings table.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore returns a Store over db. The board_settings migration must
// already have been applied.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM board_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying board setting: %w", err)
	}
	return value, true, nil
}

// PutIfAbsent implements Store. The insert and the read-back share one
// transaction, so two processes racing on a fresh file agree on the winner.
// A stored empty value counts as absent and is replaced.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, key, value string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO board_settings (key, value, created_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value WHERE board_settings.value = ''",
		key, value, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return "", fmt.Errorf("inserting board setting: %w", err)
	}

	var stored string
	if err := tx.QueryRowContext(ctx, "SELECT value FROM board_settings WHERE key = ?", key).Scan(&stored); err != nil {
		return "", fmt.Errorf("reading back board setting: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing board setting: %w", err)
	}
	return stored, nil
}
