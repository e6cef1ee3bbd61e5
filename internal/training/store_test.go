package training

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/autopilot/internal/pattern"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStore_SaveAndGet(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	s := activeSession(t)
	_, err := s.RequestElementSelection(pattern.ActionFillText, "email", loginContext(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, ModeTraining, got.Mode)
	require.NotNil(t, got.ActiveGuidance)
	assert.Equal(t, s.ActiveGuidance.Instructions, got.ActiveGuidance.Instructions)
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := setupStore(t)
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_ActiveFor(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	none, err := store.ActiveFor(ctx, "example.com")
	require.NoError(t, err)
	assert.Nil(t, none)

	s := activeSession(t)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.ActiveFor(ctx, "EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)

	_, err = s.EndTrainingSession("done")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	got, err = store.ActiveFor(ctx, "example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	ended, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeInactive, ended.Mode)
}

func TestStore_TTL(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	s := activeSession(t)
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(s.ID)))
	assert.Equal(t, time.Hour, mr.TTL(websiteKey(s.Website)))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	s := activeSession(t)
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Delete(ctx, s))

	assert.False(t, mr.Exists(sessionKey(s.ID)))
	assert.False(t, mr.Exists(websiteKey(s.Website)))
}

func TestStore_CountActive(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	n, err := store.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	first := activeSession(t)
	require.NoError(t, store.Save(ctx, first))
	second := NewSession("other.example.com")
	second.EnableTrainingMode(loginContext())
	require.NoError(t, store.Save(ctx, second))

	n, err = store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = second.EndTrainingSession("done")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, second))
	n, err = store.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mr.FastForward(2 * time.Hour)
	n, err = store.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
