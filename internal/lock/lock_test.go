package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestTryLockExclusive(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseRequiresToken(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	token, _, err := l.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, "job", "someone-else"))
	assert.True(t, mr.Exists("job"))

	require.NoError(t, l.Release(ctx, "job", token))
	assert.False(t, mr.Exists("job"))
}

func TestDo(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	ran := false
	err := l.Do(ctx, "job", time.Minute, func(context.Context) error {
		ran = true
		assert.True(t, mr.Exists("job"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("job"))

	require.NoError(t, mr.Set("job", "other"))
	err = l.Do(ctx, "job", time.Minute, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrHeld)
}

func TestNilLocker(t *testing.T) {
	var l *Locker
	_, _, err := l.TryLock(context.Background(), "job", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, NewLocker(nil))
}
