package sso

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore(t *testing.T) {
	store := NewMemoryStateStore(0, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", "verifier-1"))

	verifier, err := store.Consume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", verifier)

	_, err = store.Consume(ctx, "s1")
	assert.ErrorIs(t, err, ErrStateNotFound, "single use")

	_, err = store.Consume(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStateStore_Expires(t *testing.T) {
	store := NewMemoryStateStore(10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", "v"))
	time.Sleep(60 * time.Millisecond)

	_, err := store.Consume(ctx, "s1")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStateStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStateStore(client, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", "verifier-1"))
	assert.True(t, mr.Exists("oauth:state:s1"))

	verifier, err := store.Consume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", verifier)
	assert.False(t, mr.Exists("oauth:state:s1"))

	_, err = store.Consume(ctx, "s1")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStateStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStateStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", "v"))
	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "s1")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStateStore_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	store := NewRedisStateStore(client, time.Minute)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "s1", "v"))

	_, err = store.Consume(ctx, "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStateNotFound)
}
