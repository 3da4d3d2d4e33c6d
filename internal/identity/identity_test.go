package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with failure injection.
type memStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	putErr error
	gets   int
	puts   int

	// keepEmpty makes PutIfAbsent return a stored "" instead of replacing it.
	keepEmpty bool
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) PutIfAbsent(_ context.Context, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return "", m.putErr
	}
	if existing, ok := m.values[key]; ok && (existing != "" || m.keepEmpty) {
		return existing, nil
	}
	m.values[key] = value
	return value, nil
}

func TestGetOrCreate_GeneratesOnce(t *testing.T) {
	store := newMemStore()
	id := New(store)

	first, err := id.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := id.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, store.gets, "cached token should not hit the store again")
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, first, store.values[SettingKey])
	assert.Equal(t, first, id.Token())
}

func TestGetOrCreate_ReusesStoredToken(t *testing.T) {
	store := newMemStore()
	store.values[SettingKey] = "5b1f7c0e-existing"

	id := New(store)
	id.generate = func() string {
		t.Fatal("generator must not run when a token is stored")
		return ""
	}

	token, err := id.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5b1f7c0e-existing", token)
	assert.Zero(t, store.puts)
}

func TestGetOrCreate_StoredWinnerReturned(t *testing.T) {
	store := newMemStore()
	id := New(store)
	id.generate = func() string {
		// Another process writes first between our Get and PutIfAbsent.
		store.values[SettingKey] = "other-process"
		return "ours"
	}

	token, err := id.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "other-process", token)
}

func TestGetOrCreate_StorageFailures(t *testing.T) {
	boom := errors.New("disk on fire")

	tests := []struct {
		name   string
		getErr error
		putErr error
	}{
		{name: "read fails", getErr: boom},
		{name: "write fails", putErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.getErr = tt.getErr
			store.putErr = tt.putErr
			id := New(store)

			token, err := id.GetOrCreate(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStorageUnavailable)
			assert.ErrorIs(t, err, boom)
			assert.Empty(t, token)
			assert.Empty(t, id.Token(), "failures must not be cached")

			// Recovery: storage comes back, a token is produced.
			store.getErr, store.putErr = nil, nil
			token, err = id.GetOrCreate(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, token)
		})
	}
}

func TestGetOrCreate_EmptyStoredValue(t *testing.T) {
	t.Run("replaced by a new token", func(t *testing.T) {
		store := newMemStore()
		store.values[SettingKey] = ""

		token, err := New(store).GetOrCreate(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, token, store.values[SettingKey])
	})

	t.Run("store keeps empty value", func(t *testing.T) {
		store := newMemStore()
		store.values[SettingKey] = ""
		store.keepEmpty = true
		id := New(store)

		token, err := id.GetOrCreate(context.Background())
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.Empty(t, token)
		assert.Empty(t, id.Token())
	})
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	id := New(newMemStore())

	const callers = 16
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tok, err := id.GetOrCreate(context.Background())
			assert.NoError(t, err)
			tokens[n] = tok
		}(n)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
}
