package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestSave_StoresTokenWithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	err := store.Save(context.Background(), "sid-1", "token-1")
	require.NoError(t, err)

	stored, err := mr.Get(sessionKey("sid-1"))
	require.NoError(t, err)
	assert.Equal(t, "token-1", stored)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey("sid-1")))
}

func TestSave_RejectsEmpty(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.ErrorIs(t, store.Save(context.Background(), "", "token"), ErrNoCredential)
	assert.ErrorIs(t, store.Save(context.Background(), "sid", ""), ErrNoCredential)
}

func TestGet_Missing(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestProvider_SeesLogoutOnNextCall(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-2", "token-2"))
	provider := store.Provider("sid-2")

	token, err := provider.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)

	require.NoError(t, store.Delete(ctx, "sid-2"))

	_, err = provider.Token(ctx)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestProvider_SeesRotation(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-3", "old"))
	provider := store.Provider("sid-3")

	require.NoError(t, mr.Set(sessionKey("sid-3"), "new"))

	token, err := provider.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}

func TestGet_RedisDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := store.Get(context.Background(), "sid")
	require.ErrorContains(t, err, "redis get failed")
	assert.NotErrorIs(t, err, ErrNoCredential)
}

func TestDelete_NonExistentKey(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, store.Delete(context.Background(), "nonexistent"))
}

func TestStatic(t *testing.T) {
	token, err := Static("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = Static("").Token(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestSessionKey_Format(t *testing.T) {
	assert.Equal(t, "session:test123:token", sessionKey("test123"))
}
