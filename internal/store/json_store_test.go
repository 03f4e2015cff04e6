package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempbox/internal/model"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tempbox_accounts.json")

	s := NewJSONStore(path)
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "pa"}))
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "b@x.io", Password: "pb"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"email":"a@x.io","password":"pa"},{"email":"b@x.io","password":"pb"}]`,
		string(raw),
	)
	assert.Contains(t, string(raw), "\n  {", "pretty-printed with two-space indent")

	reopened := NewJSONStore(path)
	got, err := reopened.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.SavedAccount{
		{Email: "a@x.io", Password: "pa"},
		{Email: "b@x.io", Password: "pb"},
	}, got)
}

func TestJSONStoreRemoveRewritesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.json")

	s := NewJSONStore(path)
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: e, Password: "p"}))
	}
	require.NoError(t, s.RemoveAccount(ctx, "b@x.io"))
	require.NoError(t, s.RemoveAccount(ctx, "missing@x.io"))

	var onDisk []model.SavedAccount
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &onDisk))

	emails := make([]string, 0, len(onDisk))
	for _, a := range onDisk {
		emails = append(emails, a.Email)
	}
	assert.Equal(t, []string{"a@x.io", "c@x.io"}, emails)
}

func TestJSONStoreSaveExistingReplacesPassword(t *testing.T) {
	ctx := context.Background()
	s := NewJSONStore(filepath.Join(t.TempDir(), "accounts.json"))

	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "old"}))
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "new"}))

	got, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Password)
}

func TestJSONStoreCorruptFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewJSONStore(path)
	got, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "p"}))
	got, err = NewJSONStore(path).GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestJSONStoreMissingFile(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "nested", "accounts.json"))
	got, err := s.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveAccount(context.Background(), model.SavedAccount{Email: "a@x.io"}))
	assert.FileExists(t, s.Path())
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "accounts.json")

	s, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	cfg.Store.Backend = model.StoreBackendSQLite
	_, err = Open(cfg, nil)
	assert.ErrorContains(t, err, "no credential vault")

	cfg.Store.Backend = "redis"
	_, err = Open(cfg, nil)
	assert.Error(t, err)
}

func TestJSONStoreFailedWriteKeepsMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	s := NewJSONStore(path)
	ctx := context.Background()
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "pa"}))

	// A directory at the file path makes every rewrite fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))

	want := []model.SavedAccount{{Email: "a@x.io", Password: "pa"}}

	assert.Error(t, s.SaveAccount(ctx, model.SavedAccount{Email: "b@x.io", Password: "pb"}))
	got, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got, "unsaved account is not listed")

	assert.Error(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@x.io", Password: "changed"}))
	got, err = s.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got, "password change is not applied")

	assert.Error(t, s.RemoveAccount(ctx, "a@x.io"))
	got, err = s.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got, "account still on disk stays listed")
}
