package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/store"
)

// isolate points every file the commands touch into a temp dir.
func isolate(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("TEMPBOX_STORE_BACKEND", model.StoreBackendJSON)
	t.Setenv("TEMPBOX_STORE_PATH", filepath.Join(dir, "accounts.json"))
	t.Setenv("TEMPBOX_LOG_FILE", filepath.Join(dir, "tempbox.log"))
	return dir, filepath.Join(dir, "config.yaml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	dir, cfgPath := isolate(t)
	env := filepath.Join(dir, "missing.env")

	out, err := execute(t, "config", "init", "--config", cfgPath, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+cfgPath)
	assert.FileExists(t, cfgPath)

	_, err = execute(t, "config", "init", "--config", cfgPath, "--env-file", env)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--config", cfgPath, "--env-file", env, "--force")
	assert.NoError(t, err)
}

func TestConfigShowAppliesEnv(t *testing.T) {
	dir, cfgPath := isolate(t)
	env := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(env, []byte("TEMPBOX_API_BASE_URL=http://localhost:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEMPBOX_API_BASE_URL") })

	out, err := execute(t, "config", "show", "--config", cfgPath, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, out, "http://localhost:9999")
	assert.Contains(t, out, filepath.Join(dir, "accounts.json"))
}

func TestAccountsListAndRemove(t *testing.T) {
	dir, cfgPath := isolate(t)
	env := filepath.Join(dir, "missing.env")

	s := store.NewJSONStore(filepath.Join(dir, "accounts.json"))
	ctx := context.Background()
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "a@example.com", Password: "secret-a"}))
	require.NoError(t, s.SaveAccount(ctx, model.SavedAccount{Email: "b@example.com", Password: "secret-b"}))

	out, err := execute(t, "accounts", "list", "--config", cfgPath, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, out, "a@example.com")
	assert.Contains(t, out, "b@example.com")
	assert.NotContains(t, out, "secret-a")

	out, err = execute(t, "accounts", "list", "--show-passwords", "--config", cfgPath, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, out, "secret-b")

	out, err = execute(t, "accounts", "remove", "a@example.com", "--config", cfgPath, "--env-file", env)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed a@example.com")

	accts, err := store.NewJSONStore(filepath.Join(dir, "accounts.json")).GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accts, 1)
	assert.Equal(t, "b@example.com", accts[0].Email)
}

func TestAccountsListEmpty(t *testing.T) {
	dir, cfgPath := isolate(t)

	out, err := execute(t, "accounts", "list", "--config", cfgPath, "--env-file", filepath.Join(dir, "x.env"))
	require.NoError(t, err)
	assert.Contains(t, out, "No saved accounts.")
}
