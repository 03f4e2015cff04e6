package model

import "time"

// Notification records a message that arrived while the mailbox was
// being watched.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// AccountEmail is the mailbox the message arrived in.
	AccountEmail string `json:"account_email" db:"account_email"`

	// MessageID is the canonical id of the new message.
	MessageID string `json:"message_id" db:"message_id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
