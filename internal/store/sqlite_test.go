package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/tests/testutil"
)

func TestSQLiteMigrationsApplied(t *testing.T) {
	s := testutil.NewTestStore(t)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSQLiteAccounts(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	empty, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "pa"}))
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "b@x.io", Password: "pb"}))
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "pa2"}))

	got, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@x.io", got[0].Email)
	assert.Equal(t, "pa2", got[0].Password)
	assert.Equal(t, "b@x.io", got[1].Email)
	assert.Equal(t, "pb", got[1].Password)
	assert.False(t, got[0].CreatedAt.IsZero())

	require.NoError(t, s.RemoveAccount(ctx, "a@x.io"))
	require.NoError(t, s.RemoveAccount(ctx, "nobody@x.io"))

	got, err = s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b@x.io", got[0].Email)
}

func TestSQLiteNotifications(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "p"}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		AccountEmail: "a@x.io", MessageID: "m1", Message: "first", CreatedAt: base,
	}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		AccountEmail: "a@x.io", MessageID: "m2", Message: "second", CreatedAt: base.Add(time.Minute),
	}))
	// Duplicate message id is ignored.
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		AccountEmail: "a@x.io", MessageID: "m1", Message: "again",
	}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		AccountEmail: "other@x.io", MessageID: "m1", Message: "elsewhere",
	}))

	unread, err := s.GetUnreadNotifications(ctx, "a@x.io")
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "m2", unread[0].MessageID)
	assert.Equal(t, "m1", unread[1].MessageID)
	assert.NotEmpty(t, unread[0].ID)
	assert.False(t, unread[0].Read)

	require.NoError(t, s.MarkNotificationsRead(ctx, "a@x.io"))
	unread, err = s.GetUnreadNotifications(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Empty(t, unread)

	require.NoError(t, s.RemoveAccount(ctx, "other@x.io"))
	unread, err = s.GetUnreadNotifications(ctx, "other@x.io")
	require.NoError(t, err)
	assert.Empty(t, unread)
}
