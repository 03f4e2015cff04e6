package model

import "time"

// SavedAccount is a locally remembered mailbox login. The JSON field
// names match the tempbox_accounts.json file format.
type SavedAccount struct {
	// Email is the full provider address.
	Email string `json:"email" db:"email"`

	// Password is the provider password for Email.
	Password string `json:"password" db:"-"`

	// CreatedAt is when the account was saved. Not part of the JSON file.
	CreatedAt time.Time `json:"-" db:"created_at"`
}
