package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/tempbox/internal/credential"
	"github.com/nhle/tempbox/internal/model"
)

// SQLiteStore implements AccountStore and NotificationStore using a local
// SQLite database. Passwords live in the credential vault, never in the
// database.
type SQLiteStore struct {
	db    *sqlx.DB
	vault *credential.Vault
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, vault *credential.Vault) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, vault: vault}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the highest applied migration.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var v int
	if err := s.db.Get(&v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		currentVersion, err = s.SchemaVersion()
		if err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveAccount upserts the account row and stores its password in the vault.
func (s *SQLiteStore) SaveAccount(ctx context.Context, acct model.SavedAccount) error {
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now()
	}

	if err := s.vault.Set(credential.AccountKey(acct.Email), acct.Password); err != nil {
		return fmt.Errorf("saving account %s: %w", acct.Email, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (email, created_at) VALUES (?, ?)
		ON CONFLICT(email) DO NOTHING`,
		acct.Email, acct.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving account %s: %w", acct.Email, err)
	}

	return nil
}

// GetAccounts returns the saved accounts in insertion order. An account
// whose password is missing from the vault is returned with an empty
// password so the user can still remove it.
func (s *SQLiteStore) GetAccounts(ctx context.Context) ([]model.SavedAccount, error) {
	var accounts []model.SavedAccount
	err := s.db.SelectContext(ctx, &accounts,
		"SELECT email, created_at FROM accounts ORDER BY rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}

	for i := range accounts {
		pw, err := s.vault.Get(credential.AccountKey(accounts[i].Email))
		if err != nil {
			continue
		}
		accounts[i].Password = pw
	}

	if accounts == nil {
		accounts = []model.SavedAccount{}
	}
	return accounts, nil
}

// RemoveAccount deletes the account, its notifications and its password.
func (s *SQLiteStore) RemoveAccount(ctx context.Context, email string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE email = ?", email); err != nil {
		return fmt.Errorf("removing account %s: %w", email, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications WHERE account_email = ?", email); err != nil {
		return fmt.Errorf("removing notifications for %s: %w", email, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("removing account %s: %w", email, err)
	}

	return s.vault.Delete(credential.AccountKey(email))
}

// CreateNotification inserts a new notification record. A second
// notification for the same account and message is ignored.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications
			(id, account_email, message_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.AccountEmail, n.MessageID, n.Message,
		boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

// GetUnreadNotifications retrieves the unread notifications for email,
// newest first.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context, email string) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, account_email, message_id, message, read, created_at
		FROM notifications
		WHERE read = 0 AND account_email = ?
		ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationsRead marks every notification for email as read.
func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE account_email = ?", email,
	)
	if err != nil {
		return fmt.Errorf("marking notifications for %s as read: %w", email, err)
	}
	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n       model.Notification
		readInt int
	)

	err := rows.Scan(
		&n.ID, &n.AccountEmail, &n.MessageID, &n.Message,
		&readInt, &n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Read = readInt != 0
	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
