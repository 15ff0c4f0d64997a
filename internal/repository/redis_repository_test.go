package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "jti-1", "u-1", time.Hour))
	ok, err := repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("session:jti-1"))

	require.NoError(t, repo.Delete(ctx, "jti-1", "u-1"))
	ok, err = repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepositoryExpires(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "jti-1", "u-1", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepositoryDeleteAllForUser(t *testing.T) {
	_, client := newRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "a", "u-1", time.Hour))
	require.NoError(t, repo.Create(ctx, "b", "u-1", time.Hour))
	require.NoError(t, repo.Create(ctx, "c", "u-2", time.Hour))

	n, err := repo.DeleteAllForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for jti, want := range map[string]bool{"a": false, "b": false, "c": true} {
		ok, err := repo.Exists(ctx, jti)
		require.NoError(t, err)
		assert.Equal(t, want, ok, jti)
	}
}

func TestSessionRepositoryDeleteAllForUserLeavesConsistentState(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	n, err := repo.DeleteAllForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, repo.Create(ctx, "a", "u-1", time.Hour))
	n, err = repo.DeleteAllForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, mr.Exists("session:a"))
	assert.False(t, mr.Exists("session:user:u-1"))

	require.NoError(t, repo.Create(ctx, "b", "u-1", time.Hour))
	ok, err := repo.Exists(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	members, err := mr.Members("session:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestSessionRepositoryWithoutClient(t *testing.T) {
	repo := NewSessionRepository(nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "jti", "u", time.Hour))
	ok, err := repo.Exists(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	_, client := newRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	var out []string
	assert.ErrorIs(t, repo.Get(ctx, "subjects:g0:live", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "subjects:g0:live", []string{"english", "math"}, time.Minute))
	require.NoError(t, repo.Get(ctx, "subjects:g0:live", &out))
	assert.Equal(t, []string{"english", "math"}, out)
}

func TestCacheRepositoryGenerations(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	gen, err := repo.Generation(ctx, "subjects")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	gen, err = repo.Bump(ctx, "subjects")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	gen, err = repo.Generation(ctx, "subjects")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.True(t, mr.Exists("cachegen:subjects"))

	gen, err = repo.Generation(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()
	var out int
	assert.ErrorIs(t, repo.Get(ctx, "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	gen, err := repo.Bump(ctx, "subjects")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), gen)
}
