package store

import (
	"context"
	"fmt"

	"github.com/nhle/tempbox/internal/credential"
	"github.com/nhle/tempbox/internal/model"
)

// AccountStore persists the mailbox logins the user has created.
type AccountStore interface {
	// SaveAccount adds an account. Saving an email that already exists
	// replaces its password.
	SaveAccount(ctx context.Context, acct model.SavedAccount) error

	// GetAccounts returns the saved accounts in insertion order.
	GetAccounts(ctx context.Context) ([]model.SavedAccount, error)

	// RemoveAccount drops every entry for email. Removing an unknown email
	// is not an error.
	RemoveAccount(ctx context.Context, email string) error

	Close() error
}

// NotificationStore records new-mail notifications raised by the poller.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context, email string) ([]model.Notification, error)
	MarkNotificationsRead(ctx context.Context, email string) error
}

// Open returns the backend selected by cfg. vault is only used by the
// SQLite backend and may be nil for the JSON one.
func Open(cfg *model.AppConfig, vault *credential.Vault) (AccountStore, error) {
	switch cfg.Store.Backend {
	case model.StoreBackendJSON:
		return NewJSONStore(cfg.StorePath()), nil
	case model.StoreBackendSQLite:
		if vault == nil {
			return nil, fmt.Errorf("opening sqlite store: no credential vault")
		}
		return NewSQLiteStore(cfg.StorePath(), vault)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
