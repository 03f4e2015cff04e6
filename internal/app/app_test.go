package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/store"
	appsync "github.com/nhle/tempbox/internal/sync"
	"github.com/nhle/tempbox/tests/testutil"
)

type harness struct {
	t        *testing.T
	provider *testutil.FakeProvider
	client   *mailtm.Client
	store    *store.JSONStore
	model    Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := testutil.NewFakeProvider(t, "example.com")
	dir := t.TempDir()
	c := mailtm.NewClient(p.URL(), mailtm.WithExportDir(dir))
	s := store.NewJSONStore(filepath.Join(dir, "accounts.json"))

	h := &harness{
		t:        t,
		provider: p,
		client:   c,
		store:    s,
		model: New(c, s, Options{
			RefreshInterval: time.Hour,
			Logger:          zerolog.Nop(),
		}),
	}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.run(h.model.Init())
	return h
}

// send feeds msg to the model and runs the resulting commands.
func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	h.run(cmd)
}

// run executes cmd synchronously, feeding produced messages back in.
// Spinner and cursor ticks are dropped so animations do not loop.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	case spinner.TickMsg, cursor.BlinkMsg:
	default:
		if _, quit := msg.(tea.QuitMsg); quit {
			return
		}
		h.send(msg)
	}
}

func (h *harness) key(s string) {
	h.t.Helper()
	switch s {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "tab":
		h.send(tea.KeyMsg{Type: tea.KeyTab})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func TestNewAccountSavesAndActivates(t *testing.T) {
	h := newHarness(t)

	h.key("n")

	acct, ok := h.client.Account()
	require.True(t, ok)
	saved, err := h.store.GetAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, acct.Address, saved[0].Email)

	assert.Equal(t, paneInbox, h.model.focus)
	assert.Contains(t, h.model.notice, acct.Address)
	assert.Equal(t, 1, h.model.accountList.Len())
	assert.Equal(t, 1, h.provider.Calls("GET /messages"))
	assert.Contains(t, h.model.View(), "TempBox · "+acct.Address)
}

func TestOpenDeleteAndExportMessage(t *testing.T) {
	h := newHarness(t)
	h.key("n")
	acct, _ := h.client.Account()

	h.provider.Deliver(acct.Address,
		testutil.Message{Ref: "/messages/m1", ID: "m1", From: "a@x.io", Subject: "Hi", Text: "body text"},
		testutil.Message{ID: "m2", From: "b@x.io", Subject: "Other"},
	)
	h.key("r")
	require.Equal(t, 2, h.model.inbox.Len())

	h.key("enter")
	assert.Equal(t, ViewDetail, h.model.currentView)
	assert.Equal(t, "m1", h.model.detail.CurrentID())
	assert.Equal(t, 1, h.provider.Calls("PATCH /messages/m1"))
	assert.Equal(t, 1, h.provider.Calls("GET /sources/m1"))
	assert.Contains(t, h.model.View(), "body text")

	h.key("s")
	assert.True(t, strings.HasPrefix(h.model.notice, "Message saved to "), h.model.notice)

	h.key("d")
	assert.Equal(t, ViewMain, h.model.currentView)
	assert.Equal(t, "Message deleted", h.model.notice)
	assert.Equal(t, 1, h.model.inbox.Len())
}

func TestSwitchAndRemoveSavedAccount(t *testing.T) {
	h := newHarness(t)
	h.provider.AddAccount("saved@example.com", "pw")
	require.NoError(t, h.store.SaveAccount(context.Background(),
		model.SavedAccount{Email: "saved@example.com", Password: "pw"}))
	h.run(h.model.loadAccounts())

	require.Equal(t, paneAccounts, h.model.focus)
	h.key("enter")

	acct, ok := h.client.Account()
	require.True(t, ok)
	assert.Equal(t, "saved@example.com", acct.Address)
	assert.Equal(t, 1, h.provider.Calls("GET /me"))

	h.key("tab")
	require.Equal(t, paneAccounts, h.model.focus)
	h.key("x")

	assert.False(t, h.client.Authenticated())
	assert.Equal(t, "Removed saved@example.com", h.model.notice)
	assert.Zero(t, h.model.accountList.Len())
}

func TestSwitchBadPasswordShowsError(t *testing.T) {
	h := newHarness(t)
	h.provider.AddAccount("saved@example.com", "right")
	require.NoError(t, h.store.SaveAccount(context.Background(),
		model.SavedAccount{Email: "saved@example.com", Password: "wrong"}))
	h.run(h.model.loadAccounts())

	h.key("enter")
	assert.False(t, h.client.Authenticated())
	assert.True(t, h.model.noticeErr)
	assert.Contains(t, h.model.notice, "authenticating account")
}

func TestAutoRefreshNeedsAccount(t *testing.T) {
	h := newHarness(t)

	h.key("a")
	assert.True(t, h.model.noticeErr)
	assert.False(t, h.model.poller.Running())
}

func TestAutoRefreshToggle(t *testing.T) {
	h := newHarness(t)
	h.key("n")

	next, cmd := h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	h.model = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, h.model.poller.Running())
	assert.Equal(t, "auto-refresh 1h0m0s", h.model.refreshStatus())

	h.key("a")
	assert.False(t, h.model.poller.Running())
	assert.Equal(t, "Auto-refresh off", h.model.notice)
}

func TestShowCredentials(t *testing.T) {
	h := newHarness(t)
	h.key("n")
	acct, _ := h.client.Account()

	h.key("c")
	assert.Equal(t, "Email: "+acct.Address, h.model.notice)
	h.key("p")
	assert.Equal(t, "Password: "+acct.Password, h.model.notice)
}

func TestHelpAndCommandPalette(t *testing.T) {
	h := newHarness(t)

	h.key("?")
	assert.Equal(t, ViewHelp, h.model.currentView)
	assert.Contains(t, h.model.View(), "TempBox Keys")
	h.key("esc")
	assert.Equal(t, ViewMain, h.model.currentView)

	h.key(":")
	assert.Equal(t, ViewCommand, h.model.currentView)
	for _, r := range "new" {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	h.key("enter")

	assert.Equal(t, ViewMain, h.model.currentView)
	_, ok := h.client.Account()
	assert.True(t, ok, "palette command created an account")
}

func TestResultsForInactiveAccountAreDropped(t *testing.T) {
	h := newHarness(t)
	h.key("n")
	acct, _ := h.client.Account()
	h.provider.Deliver(acct.Address, testutil.Message{ID: "m1", Subject: "mine"})
	h.key("r")
	require.Equal(t, 1, h.model.inbox.Len())

	stale := []mailtm.MessageSummary{{ID: "x1"}, {ID: "x2"}, {ID: "x3"}}
	h.send(messagesLoadedMsg{address: "other@example.com", messages: stale})
	assert.Equal(t, 1, h.model.inbox.Len())

	h.send(appsync.RefreshResultMsg{
		Address:  acct.Address,
		Messages: stale,
		New:      stale,
	})
	assert.Equal(t, 1, h.model.inbox.Len(), "result of a stopped loop is ignored")
	assert.NotContains(t, h.model.notice, "new message")
}
