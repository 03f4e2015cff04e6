package testutil

import (
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/tempbox/internal/credential"
	"github.com/nhle/tempbox/internal/store"
)

// NewTestVault returns a credential vault backed by an in-memory keyring.
func NewTestVault() *credential.Vault {
	return credential.New(keyring.NewArrayKeyring(nil))
}

// NewTestStore creates an in-memory SQLiteStore with all migrations applied
// and an in-memory vault. It closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", NewTestVault())
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
