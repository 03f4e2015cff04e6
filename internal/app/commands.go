package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/ui/accounts"
	"github.com/nhle/tempbox/internal/ui/detail"
)

// requestTimeout bounds every client call started from the UI.
const requestTimeout = 30 * time.Second

// accountCreatedMsg is sent after a new account was registered. saveErr
// reports a failure to remember it locally.
type accountCreatedMsg struct {
	acct    mailtm.Account
	err     error
	saveErr error
}

// accountSwitchedMsg is sent after logging into a saved account.
type accountSwitchedMsg struct {
	acct mailtm.Account
	err  error
}

// accountRemovedMsg is sent after a saved account was forgotten.
type accountRemovedMsg struct {
	email     string
	wasActive bool
	err       error
}

// quotaMsg carries the provider's view of the active account.
type quotaMsg struct {
	info mailtm.AccountInfo
	err  error
}

// messagesLoadedMsg carries a manual listing.
type messagesLoadedMsg struct {
	address  string
	messages []mailtm.MessageSummary
	err      error
}

// messageDeletedMsg is sent after a delete.
type messageDeletedMsg struct {
	id  string
	err error
}

// messageExportedMsg is sent after a message was saved to disk.
type messageExportedMsg struct {
	path string
	err  error
}

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// loadAccounts returns a command that reads the saved accounts.
func (m Model) loadAccounts() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		accts, err := s.GetAccounts(context.Background())
		return accounts.AccountsLoadedMsg{Accounts: accts, Err: err}
	}
}

// newAccount registers a fresh mailbox and saves it to the store.
func (m *Model) newAccount() tea.Cmd {
	m.setNotice("Creating new temporary email...")
	c, s, p := m.client, m.store, m.poller
	return tea.Batch(m.inbox.SetLoading(true), func() tea.Msg {
		p.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		acct, err := c.RegisterAndAuthenticate(ctx, "", "")
		if err != nil {
			return accountCreatedMsg{err: err}
		}
		saveErr := s.SaveAccount(ctx, model.SavedAccount{
			Email:     acct.Address,
			Password:  acct.Password,
			CreatedAt: time.Now(),
		})
		return accountCreatedMsg{acct: acct, saveErr: saveErr}
	})
}

// switchAccount logs into a saved account.
func (m Model) switchAccount(saved model.SavedAccount) tea.Cmd {
	c, p := m.client, m.poller
	return func() tea.Msg {
		// The old session's loop must not poll the new one.
		p.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		acct, err := c.AuthenticateExisting(ctx, saved.Email, saved.Password)
		return accountSwitchedMsg{acct: acct, err: err}
	}
}

// removeAccount forgets a saved account and ends its session if active.
func (m Model) removeAccount(email string) tea.Cmd {
	c, s := m.client, m.store
	return func() tea.Msg {
		active := false
		if acct, ok := c.Account(); ok && acct.Address == email {
			active = true
			c.Reset()
		}
		err := s.RemoveAccount(context.Background(), email)
		return accountRemovedMsg{email: email, wasActive: active, err: err}
	}
}

// fetchQuota reads the provider's account record.
func (m Model) fetchQuota() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		info, err := c.Me(ctx)
		return quotaMsg{info: info, err: err}
	}
}

// loadMessages lists the active mailbox once.
func (m Model) loadMessages() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		acct, _ := c.Account()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		msgs, err := c.ListMessages(ctx)
		return messagesLoadedMsg{address: acct.Address, messages: msgs, err: err}
	}
}

// loadDetail fetches a message with its raw headers and marks it seen.
// Header and seen failures are logged and do not fail the view.
func (m Model) loadDetail(id string) tea.Cmd {
	c, log := m.client, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		d, err := c.GetDetail(ctx, id)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}

		var headers []mailtm.Header
		if src, err := c.GetSource(ctx, d.ID); err != nil {
			log.Debug().Err(err).Str("id", d.ID).Msg("fetching message source")
		} else {
			headers = src.Headers
		}

		if !d.Seen {
			if err := c.MarkSeen(ctx, d.ID); err != nil {
				log.Debug().Err(err).Str("id", d.ID).Msg("marking message seen")
			}
		}

		return detail.DetailLoadedMsg{Detail: d, Headers: headers}
	}
}

// deleteMessage deletes a message on the provider.
func (m Model) deleteMessage(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return messageDeletedMsg{id: id, err: c.Delete(ctx, id)}
	}
}

// exportMessage saves a message's raw record to a file.
func (m Model) exportMessage(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		path, err := c.ExportToFile(ctx, id)
		return messageExportedMsg{path: path, err: err}
	}
}

// fetchUnreadCount returns a tea.Cmd that counts unread notifications for
// the active account.
func (m Model) fetchUnreadCount() tea.Cmd {
	notes, c := m.notes, m.client
	if notes == nil {
		return nil
	}
	return func() tea.Msg {
		acct, ok := c.Account()
		if !ok {
			return unreadCountMsg{count: 0}
		}
		unread, err := notes.GetUnreadNotifications(context.Background(), acct.Address)
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(unread)}
	}
}

// markNotificationsRead clears the unread badge once the user reads mail.
func (m *Model) markNotificationsRead() tea.Cmd {
	notes, c := m.notes, m.client
	if notes == nil || m.unreadCount == 0 {
		return nil
	}
	m.unreadCount = 0
	return func() tea.Msg {
		if acct, ok := c.Account(); ok {
			_ = notes.MarkNotificationsRead(context.Background(), acct.Address)
		}
		return nil
	}
}
