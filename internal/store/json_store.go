package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nhle/tempbox/internal/model"
)

// JSONStore keeps saved accounts in a pretty-printed JSON array of
// {"email","password"} objects. The file is read once and rewritten in
// full on every mutation.
type JSONStore struct {
	path string

	mu       sync.Mutex
	accounts []model.SavedAccount
}

// NewJSONStore loads path. A missing, unreadable or corrupt file yields
// an empty store; the next mutation overwrites it.
func NewJSONStore(path string) *JSONStore {
	s := &JSONStore{path: path, accounts: []model.SavedAccount{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var accounts []model.SavedAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		return s
	}
	if accounts != nil {
		s.accounts = accounts
	}
	return s
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) SaveAccount(_ context.Context, acct model.SavedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.SavedAccount, len(s.accounts), len(s.accounts)+1)
	copy(next, s.accounts)

	replaced := false
	for i := range next {
		if next[i].Email == acct.Email {
			next[i].Password = acct.Password
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, model.SavedAccount{
			Email:    acct.Email,
			Password: acct.Password,
		})
	}
	return s.commit(next)
}

func (s *JSONStore) GetAccounts(_ context.Context) ([]model.SavedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.SavedAccount, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

func (s *JSONStore) RemoveAccount(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.SavedAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.Email != email {
			next = append(next, a)
		}
	}
	return s.commit(next)
}

func (s *JSONStore) Close() error {
	return nil
}

// commit writes accounts to disk and only then makes them the in-memory
// list, so a failed write leaves the store unchanged. Callers hold mu.
func (s *JSONStore) commit(accounts []model.SavedAccount) error {
	if err := s.flush(accounts); err != nil {
		return err
	}
	s.accounts = accounts
	return nil
}

// flush rewrites the whole file.
func (s *JSONStore) flush(accounts []model.SavedAccount) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}
