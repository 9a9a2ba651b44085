package cache_test

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/devlinkhq/backend/internal/cache"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       []string{mr.Addr()},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return cache.New(client, time.Second, zap.NewNop()), mr
}

func TestSetAndGetWithinTTL(t *testing.T) {
	c, mr := setupTest(t)
	ctx := t.Context()

	require.NoError(t, c.Set(ctx, "posts:p1", `{"posts":[]}`, 1800*time.Second))

	val, ok := c.Get(ctx, "posts:p1")
	require.True(t, ok)
	assert.Equal(t, `{"posts":[]}`, val)

	// Past the TTL the entry is gone.
	mr.FastForward(1801 * time.Second)
	_, ok = c.Get(ctx, "posts:p1")
	assert.False(t, ok)
}

func TestSetWithoutTTLDoesNotExpire(t *testing.T) {
	c, mr := setupTest(t)
	ctx := t.Context()

	require.NoError(t, c.Set(ctx, "posts:p1", "v", 0))
	mr.FastForward(24 * time.Hour)

	_, ok := c.Get(ctx, "posts:p1")
	assert.True(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	c, _ := setupTest(t)

	_, ok := c.Get(t.Context(), "posts:absent")
	assert.False(t, ok)
}

func TestInvalidatePattern(t *testing.T) {
	c, _ := setupTest(t)
	ctx := t.Context()

	require.NoError(t, c.Set(ctx, "posts:skip=0&limit=10", "a", 0))
	require.NoError(t, c.Set(ctx, "posts:skip=10&limit=10", "b", 0))
	require.NoError(t, c.Set(ctx, "services:offset=0&limit=20", "c", 0))

	require.NoError(t, c.Invalidate(ctx, "posts:*"))

	_, ok := c.Get(ctx, "posts:skip=0&limit=10")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "posts:skip=10&limit=10")
	assert.False(t, ok)

	// Unmatched resource classes survive.
	val, ok := c.Get(ctx, "services:offset=0&limit=20")
	require.True(t, ok)
	assert.Equal(t, "c", val)
}

func TestInvalidateManyKeys(t *testing.T) {
	c, _ := setupTest(t)
	ctx := t.Context()

	// More keys than one SCAN chunk, so the cursor loop has to iterate.
	for i := 0; i < 500; i++ {
		key := cache.Key("jobpostings", url.Values{"page": {strconv.Itoa(i)}})
		require.NoError(t, c.Set(ctx, key, "v", 0))
	}

	require.NoError(t, c.Invalidate(ctx, "jobpostings:*"))

	for i := 0; i < 500; i++ {
		key := cache.Key("jobpostings", url.Values{"page": {strconv.Itoa(i)}})
		_, ok := c.Get(ctx, key)
		require.False(t, ok, "key %s survived invalidation", key)
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	c, _ := setupTest(t)
	ctx := t.Context()

	require.NoError(t, c.Set(ctx, "posts:p1", "v", 0))
	require.NoError(t, c.Invalidate(ctx, "posts:*"))
	// Second run with no intervening writes: no error, no effect.
	require.NoError(t, c.Invalidate(ctx, "posts:*"))
}

func TestGetFailsOpenWhenBackendDown(t *testing.T) {
	c, mr := setupTest(t)
	ctx := t.Context()

	require.NoError(t, c.Set(ctx, "posts:p1", "v", 0))
	mr.Close()

	// A dead backend degrades to a miss, never an error.
	_, ok := c.Get(ctx, "posts:p1")
	assert.False(t, ok)
}

func TestSetSurfacesBackendFailure(t *testing.T) {
	c, mr := setupTest(t)
	mr.Close()

	err := c.Set(t.Context(), "posts:p1", "v", 0)
	require.Error(t, err)
}

func TestKeyCanonicalization(t *testing.T) {
	a := cache.Key("services", url.Values{"limit": {"20"}, "offset": {"0"}})
	b := cache.Key("services", url.Values{"offset": {"0"}, "limit": {"20"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "services:limit=20&offset=0", a)

	assert.Equal(t, "services", cache.Key("services", nil))
}
