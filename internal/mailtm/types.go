package mailtm

import "encoding/json"

// Collection is the JSON-LD envelope the provider wraps list results in.
type Collection[T any] struct {
	Members    []T `json:"hydra:member"`
	TotalItems int `json:"hydra:totalItems"`
}

// Domain is a mail domain offered by the provider.
type Domain struct {
	Ref       string `json:"@id,omitempty"`
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	IsActive  bool   `json:"isActive"`
	IsPrivate bool   `json:"isPrivate"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// credentials is the body of POST /accounts and POST /token.
type credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

// tokenResponse is the response from POST /token.
type tokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// AccountInfo is the response from POST /accounts and GET /me.
type AccountInfo struct {
	Ref        string `json:"@id,omitempty"`
	ID         string `json:"id"`
	Address    string `json:"address"`
	Quota      int64  `json:"quota"`
	Used       int64  `json:"used"`
	IsDisabled bool   `json:"isDisabled"`
	IsDeleted  bool   `json:"isDeleted"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// Address is a sender or recipient.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Attachment is attachment metadata on a message detail.
type Attachment struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	ContentType      string `json:"contentType"`
	Disposition      string `json:"disposition"`
	TransferEncoding string `json:"transferEncoding"`
	Related          bool   `json:"related"`
	Size             int64  `json:"size"`
	DownloadURL      string `json:"downloadUrl"`
}

// MessageSummary is a normalized entry of the mailbox listing. ID is
// always canonical (see CanonicalID).
type MessageSummary struct {
	Ref            string  `json:"@id,omitempty"`
	ID             string  `json:"id"`
	From           Address `json:"from"`
	Subject        string  `json:"subject"`
	Intro          string  `json:"intro,omitempty"`
	Seen           bool    `json:"seen"`
	HasAttachments bool    `json:"hasAttachments"`
	Size           int64   `json:"size"`
	CreatedAt      string  `json:"createdAt"`
}

// MessageDetail is the full content of one message. Raw holds the record
// exactly as the provider returned it.
type MessageDetail struct {
	MessageSummary
	To          []Address       `json:"to"`
	Cc          []Address       `json:"cc,omitempty"`
	Bcc         []Address       `json:"bcc,omitempty"`
	Text        string          `json:"text"`
	HTML        []string        `json:"html"`
	Attachments []Attachment    `json:"attachments"`
	Raw         json.RawMessage `json:"-"`
}

// sourceResponse is the response from GET /sources/{id}.
type sourceResponse struct {
	ID          string `json:"id"`
	DownloadURL string `json:"downloadUrl"`
	Data        string `json:"data"`
}

// Header is a single RFC 822 header field.
type Header struct {
	Key   string
	Value string
}

// MessageSource is the raw RFC 822 form of a message with its parsed headers.
type MessageSource struct {
	ID      string
	Data    string
	Headers []Header
}

// ErrorResponse covers the JSON-LD and problem+json error shapes.
type ErrorResponse struct {
	HydraDescription string `json:"hydra:description"`
	Detail           string `json:"detail"`
	Message          string `json:"message"`
}
