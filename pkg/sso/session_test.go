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

func TestNewAuthSession(t *testing.T) {
	s1 := NewAuthSession("acme", "my-app", "https://app.example.org/cb")
	s2 := NewAuthSession("acme", "my-app", "https://app.example.org/cb")

	assert.NotEmpty(t, s1.Code)
	assert.NotEqual(t, s1.Code, s2.Code)
	assert.NotNil(t, s1.ClientNotes)
	assert.NotNil(t, s1.AuthNotes)
}

func testSessionStore(t *testing.T, store SessionStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session := NewAuthSession("acme", "my-app", "https://app.example.org/cb")
	session.ClientNotes[ParamState] = "xyz"
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Realm)
	assert.Equal(t, "my-app", got.ClientID)
	assert.Equal(t, "xyz", got.ClientNotes[ParamState])

	got.AuthNotes[EmailNote] = "alice@example.com"
	reloaded, err := store.Get(ctx, session.Code)
	require.NoError(t, err)
	assert.Empty(t, reloaded.AuthNotes, "changes must not be visible before Save")

	require.NoError(t, store.Save(ctx, got))
	reloaded, err = store.Get(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", reloaded.AuthNotes[EmailNote])

	require.NoError(t, store.Delete(ctx, session.Code))
	_, err = store.Get(ctx, session.Code)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore(t *testing.T) {
	testSessionStore(t, NewMemorySessionStore(100, time.Minute))
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore(100, 20*time.Millisecond)
	session := NewAuthSession("acme", "my-app", "https://app.example.org/cb")
	require.NoError(t, store.Save(context.Background(), session))

	time.Sleep(60 * time.Millisecond)
	_, err := store.Get(context.Background(), session.Code)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	testSessionStore(t, NewRedisSessionStore(client, time.Minute))
}

func TestRedisSessionStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisSessionStore(client, time.Minute)
	session := NewAuthSession("acme", "my-app", "https://app.example.org/cb")
	require.NoError(t, store.Save(context.Background(), session))

	assert.Equal(t, time.Minute, mr.TTL(sessionKey(session.Code)))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(context.Background(), session.Code)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisSessionStore(client, time.Minute)

	mr.Close()

	_, err := store.Get(context.Background(), "code")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	assert.Error(t, err)

	_, err = NewRedisClient(context.Background(), "redis://127.0.0.1:1")
	assert.Error(t, err)
}
