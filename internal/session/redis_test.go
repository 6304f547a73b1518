package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhant-rajhans/ducknest/internal/session"
	"github.com/siddhant-rajhans/ducknest/internal/testutil"
)

func TestRedisStore(t *testing.T) {
	testutil.RequireIntegration(t)
	ctx := context.Background()

	store, err := session.NewRedisStore(ctx, testutil.StartRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	a := session.Session{ID: "a", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	b := session.Session{ID: "b", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	c := session.Session{ID: "c", UserID: "u2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []session.Session{a, b, c} {
		require.NoError(t, store.Save(ctx, s))
	}

	got, err := store.Find(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, a.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Find(ctx, "a")
	assert.ErrorIs(t, err, session.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "a"))

	require.NoError(t, store.DeleteUser(ctx, "u1"))
	_, err = store.Find(ctx, "b")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Find(ctx, "c")
	assert.NoError(t, err)

	expired := session.Session{ID: "d", UserID: "u3", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}
	assert.Error(t, store.Save(ctx, expired))
}
