package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/tempbox/internal/keys"
	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/store"
	appsync "github.com/nhle/tempbox/internal/sync"
	"github.com/nhle/tempbox/internal/ui"
	"github.com/nhle/tempbox/internal/ui/accounts"
	"github.com/nhle/tempbox/internal/ui/command"
	"github.com/nhle/tempbox/internal/ui/detail"
	helpview "github.com/nhle/tempbox/internal/ui/help"
	"github.com/nhle/tempbox/internal/ui/inbox"
)

// Mailbox is the mail client surface the TUI drives.
type Mailbox interface {
	appsync.Mailbox
	RegisterAndAuthenticate(ctx context.Context, username, password string) (mailtm.Account, error)
	AuthenticateExisting(ctx context.Context, address, password string) (mailtm.Account, error)
	Me(ctx context.Context) (mailtm.AccountInfo, error)
	Reset()
	GetDetail(ctx context.Context, id string) (*mailtm.MessageDetail, error)
	GetSource(ctx context.Context, id string) (*mailtm.MessageSource, error)
	MarkSeen(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ExportToFile(ctx context.Context, id string) (string, error)
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewMain ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
)

// pane identifies the focused pane of the main view.
type pane int

const (
	paneInbox pane = iota
	paneAccounts
)

// Options configures the root model.
type Options struct {
	// RefreshInterval is the auto-refresh period.
	RefreshInterval time.Duration

	// AutoRefresh starts polling as soon as an account is active.
	AutoRefresh bool

	Logger zerolog.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the mail client and account store.
type Model struct {
	currentView  ViewState
	previousView ViewState
	focus        pane
	layout       ui.Layout

	client Mailbox
	store  store.AccountStore
	notes  store.NotificationStore
	poller *appsync.Poller
	keys   *keys.KeyMap
	log    zerolog.Logger

	accountList accounts.Model
	inbox       inbox.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model

	autoRefresh bool
	ready       bool
	unreadCount int
	notice      string
	noticeErr   bool
}

// New creates the root model. The store doubles as the notification sink
// when it implements store.NotificationStore.
func New(client Mailbox, s store.AccountStore, opts Options) Model {
	k := keys.DefaultKeyMap()
	notes, _ := s.(store.NotificationStore)

	return Model{
		currentView: ViewMain,
		focus:       paneAccounts,
		client:      client,
		store:       s,
		notes:       notes,
		poller:      appsync.New(client, notes, opts.RefreshInterval, opts.Logger),
		keys:        k,
		log:         opts.Logger,
		accountList: accounts.New(k, 30, 20),
		inbox:       inbox.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, int(opts.RefreshInterval/time.Second), 80, 24),
		commandView: command.New(80, 24),
		autoRefresh: opts.AutoRefresh,
	}
}

// Init loads the saved accounts.
func (m Model) Init() tea.Cmd {
	return m.loadAccounts()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.accountList.SetSize(m.layout.AccountPane())
		m.inbox.SetSize(m.layout.InboxPane())
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		return m, nil

	case accounts.AccountsLoadedMsg:
		if msg.Err != nil {
			m.setError("loading saved accounts", msg.Err)
		}
		var cmd tea.Cmd
		m.accountList, cmd = m.accountList.Update(msg)
		return m, cmd

	case accounts.SelectedAccountMsg:
		m.setNotice("Logging into " + msg.Account.Email + "...")
		return m, tea.Batch(
			m.inbox.SetLoading(true),
			m.switchAccount(msg.Account),
		)

	case accounts.RemoveAccountMsg:
		return m, m.removeAccount(msg.Email)

	case accountCreatedMsg:
		if msg.err != nil {
			m.inbox.SetLoading(false)
			m.setError("creating account", msg.err)
			return m, nil
		}
		m.setNotice(fmt.Sprintf("New email: %s  password: %s", msg.acct.Address, msg.acct.Password))
		if msg.saveErr != nil {
			m.setError("saving account", msg.saveErr)
		}
		return m, m.activate(msg.acct)

	case accountSwitchedMsg:
		if msg.err != nil {
			m.inbox.SetLoading(false)
			m.setError("authenticating account", msg.err)
			return m, nil
		}
		m.setNotice("Switched to " + msg.acct.Address)
		return m, tea.Batch(m.activate(msg.acct), m.fetchQuota())

	case quotaMsg:
		if msg.err == nil && msg.info.Quota > 0 {
			m.setNotice(fmt.Sprintf("%s: %d of %d bytes used",
				msg.info.Address, msg.info.Used, msg.info.Quota))
		}
		return m, nil

	case accountRemovedMsg:
		if msg.err != nil {
			m.setError("removing account", msg.err)
			return m, nil
		}
		m.setNotice("Removed " + msg.email)
		cmds := []tea.Cmd{m.loadAccounts()}
		if msg.wasActive {
			m.poller.Stop()
			m.accountList.SetActive("")
			m.unreadCount = 0
			cmds = append(cmds, m.inbox.Clear())
		}
		return m, tea.Batch(cmds...)

	case messagesLoadedMsg:
		if !m.isActive(msg.address) {
			return m, nil
		}
		if msg.err != nil {
			m.inbox.SetLoading(false)
			m.setError("fetching messages", msg.err)
			return m, nil
		}
		return m, m.inbox.SetMessages(msg.address, msg.messages, nil)

	case appsync.RefreshResultMsg:
		// A stopped loop's result belongs to an earlier session.
		if !m.poller.Current(msg) || !m.isActive(msg.Address) {
			return m, nil
		}
		cmds := []tea.Cmd{m.poller.WaitForNextResult()}
		switch {
		case msg.AuthExpired:
			m.setError("auto-refresh", fmt.Errorf("session expired for %s, select the account again", msg.Address))
		case msg.Err != nil:
			m.setError("auto-refresh", msg.Err)
		default:
			cmds = append(cmds, m.inbox.SetMessages(msg.Address, msg.Messages, msg.New))
			if len(msg.New) > 0 {
				m.setNotice(fmt.Sprintf("%d new message(s)", len(msg.New)))
			}
			cmds = append(cmds, m.fetchUnreadCount())
		}
		return m, tea.Batch(cmds...)

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case inbox.SelectedMessageMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, tea.Batch(
			m.loadDetail(msg.ID),
			m.inbox.MarkSeen(msg.ID),
		)

	case inbox.DeleteMessageMsg:
		return m, m.deleteMessage(msg.ID)

	case inbox.ExportMessageMsg:
		return m, m.exportMessage(msg.ID)

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionDelete:
			m.currentView = ViewMain
			return m, m.deleteMessage(msg.ID)
		case detail.ActionExport:
			return m, m.exportMessage(msg.ID)
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewMain
		return m, nil

	case detail.DetailLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, tea.Batch(cmd, m.markNotificationsRead())

	case messageDeletedMsg:
		if msg.err != nil {
			m.setError("deleting message", msg.err)
			return m, nil
		}
		m.setNotice("Message deleted")
		return m, m.inbox.Remove(msg.id)

	case messageExportedMsg:
		if msg.err != nil {
			m.setError("saving message", msg.err)
			return m, nil
		}
		m.setNotice("Message saved to " + msg.path)
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.poller.Stop()
			return m, tea.Quit
		}
		if m.inbox.Searching() {
			break
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work outside the focused pane. It
// reports whether the key was consumed.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "esc":
		if m.currentView == ViewHelp || m.currentView == ViewCommand {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		if m.currentView == ViewCommand {
			return nil, false
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case ":":
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	}

	if m.currentView != ViewMain {
		return nil, false
	}

	switch msg.String() {
	case "q":
		m.poller.Stop()
		return tea.Quit, true
	case "tab":
		if m.focus == paneInbox {
			m.focus = paneAccounts
		} else {
			m.focus = paneInbox
		}
		return nil, true
	case "n":
		return m.newAccount(), true
	case "r":
		return m.refresh(), true
	case "a":
		return m.toggleAutoRefresh(), true
	case "c":
		m.showCredential(false)
		return nil, true
	case "p":
		m.showCredential(true)
		return nil, true
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewMain:
		if _, isKey := msg.(tea.KeyMsg); isKey && m.focus == paneAccounts {
			m.accountList, cmd = m.accountList.Update(msg)
		} else {
			m.inbox, cmd = m.inbox.Update(msg)
		}
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "new", "create":
		return m.newAccount()
	case "refresh":
		return m.refresh()
	case "auto", "auto-refresh":
		return m.toggleAutoRefresh()
	case "accounts":
		m.focus = paneAccounts
	case "inbox":
		m.focus = paneInbox
	case "search":
		m.focus = paneInbox
		var c tea.Cmd
		m.inbox, c = m.inbox.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
		return c
	case "copy address":
		m.showCredential(false)
	case "copy password":
		m.showCredential(true)
	case "quit", "q":
		m.poller.Stop()
		return tea.Quit
	default:
		m.setNotice("Unknown command: " + cmd)
		m.noticeErr = true
	}
	return nil
}

// activate makes acct the active mailbox in the UI.
func (m *Model) activate(acct mailtm.Account) tea.Cmd {
	m.accountList.SetActive(acct.Address)
	m.focus = paneInbox
	m.unreadCount = 0

	cmds := []tea.Cmd{m.loadAccounts()}
	m.poller.Stop()
	if m.autoRefresh {
		// The poller's first result fills the inbox.
		cmds = append(cmds, m.poller.Start())
	} else {
		cmds = append(cmds, m.loadMessages())
	}
	return tea.Batch(cmds...)
}

// isActive reports whether address is the signed-in mailbox.
func (m Model) isActive(address string) bool {
	acct, ok := m.client.Account()
	return ok && acct.Address == address
}

// refresh fetches the listing now, through the poller when it runs.
func (m *Model) refresh() tea.Cmd {
	if _, ok := m.client.Account(); !ok {
		m.setError("refreshing", mailtm.ErrUnauthenticated)
		return nil
	}
	if m.poller.Running() {
		m.poller.Refresh()
		return nil
	}
	return tea.Batch(m.inbox.SetLoading(true), m.loadMessages())
}

// toggleAutoRefresh starts or stops background polling.
func (m *Model) toggleAutoRefresh() tea.Cmd {
	if m.poller.Running() {
		m.poller.Stop()
		m.autoRefresh = false
		m.setNotice("Auto-refresh off")
		return nil
	}

	if _, ok := m.client.Account(); !ok {
		m.setError("auto-refresh", fmt.Errorf("select an email account first"))
		return nil
	}
	m.autoRefresh = true
	m.setNotice(fmt.Sprintf("Auto-refresh every %s", m.poller.Interval()))
	return m.poller.Start()
}

// showCredential puts the active address or password in the status bar.
func (m *Model) showCredential(password bool) {
	acct, ok := m.client.Account()
	if !ok {
		m.setError("no active account", mailtm.ErrUnauthenticated)
		return
	}
	if password {
		m.setNotice("Password: " + acct.Password)
		return
	}
	m.setNotice("Email: " + acct.Address)
}

func (m *Model) setNotice(s string) {
	m.notice = s
	m.noticeErr = false
}

func (m *Model) setError(what string, err error) {
	m.log.Warn().Err(err).Msg(what)
	m.notice = fmt.Sprintf("%s: %v", what, err)
	m.noticeErr = true
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "TempBox"
	if acct, ok := m.client.Account(); ok {
		title += " · " + acct.Address
	}
	if m.unreadCount > 0 {
		title = fmt.Sprintf("%s [%d new]", title, m.unreadCount)
	}

	header := m.layout.RenderHeader(title, m.refreshStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.notice, m.noticeErr)

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewMain:
		return m.layout.RenderPanes(
			m.accountList.View(),
			m.inbox.View(),
			m.focus == paneAccounts,
		)
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// refreshStatus describes the auto-refresh state for the header.
func (m Model) refreshStatus() string {
	if m.poller.Running() {
		return "auto-refresh " + m.poller.Interval().String()
	}
	return "manual"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		return "esc back | d delete | s save | j/k scroll"
	}
	if m.focus == paneAccounts {
		return "enter login | x remove | n new | tab inbox | ? help | q quit"
	}
	return "enter open | d delete | s save | / search | r refresh | a auto | tab accounts | q quit"
}
