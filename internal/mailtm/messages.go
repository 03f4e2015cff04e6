package mailtm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// CanonicalID derives the path-free message id. The final non-empty
// segment of the resource reference (e.g. "/messages/abc") takes
// precedence over the raw id field. Returns "" when both are absent.
func CanonicalID(ref, rawID string) string {
	if id := lastSegment(ref); id != "" {
		return id
	}
	return lastSegment(rawID)
}

func lastSegment(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ListMessages returns the current mailbox listing with canonical ids.
// A new, empty mailbox yields an empty non-nil slice.
func (c *Client) ListMessages(ctx context.Context) ([]MessageSummary, error) {
	sess, err := c.requireSession()
	if err != nil {
		return nil, err
	}

	var coll Collection[MessageSummary]
	err = c.do(ctx, request{
		method: http.MethodGet,
		path:   "/messages",
		token:  sess.Token,
	}, &coll, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("address", sess.Account.Address).Msg("fetching messages")
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	msgs := make([]MessageSummary, 0, len(coll.Members))
	for _, m := range coll.Members {
		m.ID = CanonicalID(m.Ref, m.ID)
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Search returns the messages whose subject or sender address contains
// query, ignoring case. An empty query returns the whole listing.
func (c *Client) Search(ctx context.Context, query string) ([]MessageSummary, error) {
	msgs, err := c.ListMessages(ctx)
	if err != nil {
		return []MessageSummary{}, err
	}
	return FilterMessages(msgs, query), nil
}

// FilterMessages is the filter behind Search.
func FilterMessages(msgs []MessageSummary, query string) []MessageSummary {
	q := strings.ToLower(query)
	out := make([]MessageSummary, 0, len(msgs))
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Subject), q) ||
			strings.Contains(strings.ToLower(m.From.Address), q) {
			out = append(out, m)
		}
	}
	return out
}

// messageIDs returns the set of canonical ids in msgs.
func messageIDs(msgs []MessageSummary) map[string]struct{} {
	ids := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		ids[m.ID] = struct{}{}
	}
	return ids
}
