package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SettingKey is the board_settings key the identifier is stored under.
const SettingKey = "board_identifier"

// Store persists board settings.
type Store interface {
	// Get returns the stored value for key and whether it exists.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// PutIfAbsent stores value under key unless a value is already present,
	// and returns whichever value ends up stored.
	PutIfAbsent(ctx context.Context, key, value string) (stored string, err error)
}

// Identity resolves and caches the board identifier.
type Identity struct {
	store    Store
	generate func() string

	mu    sync.Mutex
	token string
}

// New returns an Identity backed by store.
func New(store Store) *Identity {
	return &Identity{
		store:    store,
		generate: uuid.NewString,
	}
}

// GetOrCreate returns the board identifier, generating and persisting one on
// first use.
//
// The first successful result is cached for the life of the process.
// Concurrent callers block on each other and all observe the same token.
//
// Returns:
//   - string: The board identifier (never empty on success)
//   - error: Wraps ErrStorageUnavailable if the store fails
func (i *Identity) GetOrCreate(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.token != "" {
		return i.token, nil
	}

	token, ok, err := i.store.Get(ctx, SettingKey)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrStorageUnavailable, SettingKey, err)
	}

	if !ok || token == "" {
		token, err = i.store.PutIfAbsent(ctx, SettingKey, i.generate())
		if err != nil {
			return "", fmt.Errorf("%w: writing %s: %w", ErrStorageUnavailable, SettingKey, err)
		}
		if token == "" {
			return "", fmt.Errorf("%w: %s stored empty", ErrStorageUnavailable, SettingKey)
		}
	}

	i.token = token
	return token, nil
}

// Token returns the cached identifier, or "" before GetOrCreate succeeds.
func (i *Identity) Token() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.token
}
