// Package cli implements the numbered terminal menu.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/store"
)

// Mailbox is the mail client surface the menu drives.
type Mailbox interface {
	RegisterAndAuthenticate(ctx context.Context, username, password string) (mailtm.Account, error)
	AuthenticateExisting(ctx context.Context, address, password string) (mailtm.Account, error)
	Account() (mailtm.Account, bool)
	ListMessages(ctx context.Context) ([]mailtm.MessageSummary, error)
	Search(ctx context.Context, query string) ([]mailtm.MessageSummary, error)
	WaitForNew(ctx context.Context, interval time.Duration, maxChecks int) (*mailtm.WaitResult, error)
	RenderPlaintext(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	ExportToFile(ctx context.Context, id string) (string, error)
}

// Menu choices.
const (
	ChoiceSwitch = "0"
	ChoiceCreate = "1"
	ChoiceCheck  = "2"
	ChoiceWait   = "3"
	ChoiceSearch = "4"
	ChoiceView   = "5"
	ChoiceDelete = "6"
	ChoiceSave   = "7"
	ChoiceExit   = "8"
)

var menuItems = []struct {
	choice string
	label  string
}{
	{ChoiceSwitch, "Switch to a saved account"},
	{ChoiceCreate, "Create a new temporary email"},
	{ChoiceCheck, "Check messages"},
	{ChoiceWait, "Wait for new messages"},
	{ChoiceSearch, "Search messages"},
	{ChoiceView, "View message details"},
	{ChoiceDelete, "Delete message"},
	{ChoiceSave, "Save message to file"},
	{ChoiceExit, "Exit"},
}

// Menu is the interactive numbered menu.
type Menu struct {
	mailbox Mailbox
	store   store.AccountStore
	prompt  Prompter
	out     io.Writer
	log     zerolog.Logger

	waitInterval time.Duration
	waitChecks   int
}

// NewMenu builds a menu. Wait defaults come from cfg.
func NewMenu(
	mb Mailbox,
	s store.AccountStore,
	p Prompter,
	out io.Writer,
	cfg model.WaitConfig,
	log zerolog.Logger,
) *Menu {
	return &Menu{
		mailbox:      mb,
		store:        s,
		prompt:       p,
		out:          out,
		log:          log,
		waitInterval: time.Duration(cfg.IntervalSec) * time.Second,
		waitChecks:   cfg.MaxChecks,
	}
}

// Run shows the menu until the user exits, aborts input, or ctx ends.
func (m *Menu) Run(ctx context.Context) error {
	m.println(successStyle.Render("Welcome to TempBox!"))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printMenu()
		choice, err := m.prompt.Input("Enter your choice (0-8):", "1")
		if errors.Is(err, ErrAborted) {
			m.println(successStyle.Render("Goodbye!"))
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading menu choice: %w", err)
		}

		quit, err := m.Dispatch(ctx, choice)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// Dispatch runs the action for one menu choice. It reports whether the
// user asked to exit. Operation failures are printed, not returned; the
// returned error is reserved for prompt failures.
func (m *Menu) Dispatch(ctx context.Context, choice string) (bool, error) {
	var err error
	switch strings.TrimSpace(choice) {
	case ChoiceSwitch:
		err = m.switchAccount(ctx)
	case ChoiceCreate:
		m.createAccount(ctx)
		return false, nil
	case ChoiceCheck:
		m.checkMessages(ctx)
	case ChoiceWait:
		err = m.waitForMessages(ctx)
	case ChoiceSearch:
		err = m.searchMessages(ctx)
	case ChoiceView:
		err = m.viewMessage(ctx)
	case ChoiceDelete:
		err = m.deleteMessage(ctx)
	case ChoiceSave:
		err = m.saveMessage(ctx)
	case ChoiceExit:
		m.println(successStyle.Render("Thank you for using TempBox. Goodbye!"))
		return true, nil
	default:
		m.println(errorStyle.Render("Invalid choice. Please try again."))
		return false, nil
	}

	if errors.Is(err, ErrAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return false, m.pause()
}

func (m *Menu) printMenu() {
	m.println("")
	m.println(bannerStyle.Render("TempBox"))
	if acct, ok := m.mailbox.Account(); ok {
		m.println("Active account: " + accountStyle.Render(acct.Address))
	}
	m.println("")
	for _, item := range menuItems {
		m.println(numberStyle.Render(item.choice+".") + " " + item.label)
	}
}

func (m *Menu) createAccount(ctx context.Context) {
	m.println(infoStyle.Render("Creating new temporary email..."))

	acct, err := m.mailbox.RegisterAndAuthenticate(ctx, "", "")
	if err != nil {
		m.fail("Failed to create account", err)
		return
	}

	m.println(successStyle.Render("Account created successfully!"))
	m.println("Email:    " + accountStyle.Render(acct.Address))
	m.println("Password: " + acct.Password)

	err = m.store.SaveAccount(ctx, model.SavedAccount{
		Email:     acct.Address,
		Password:  acct.Password,
		CreatedAt: time.Now(),
	})
	if err != nil {
		m.fail("Account was not saved locally", err)
	}
}

func (m *Menu) switchAccount(ctx context.Context) error {
	accounts, err := m.store.GetAccounts(ctx)
	if err != nil {
		m.fail("Failed to load saved accounts", err)
		return nil
	}
	if len(accounts) == 0 {
		m.println(errorStyle.Render("No saved accounts. Create one first (option 1)."))
		return nil
	}

	emails := make([]string, len(accounts))
	for i, a := range accounts {
		emails[i] = a.Email
	}
	chosen, err := m.prompt.Select("Choose an account:", emails)
	if err != nil {
		return err
	}

	for _, a := range accounts {
		if a.Email != chosen {
			continue
		}
		if _, err := m.mailbox.AuthenticateExisting(ctx, a.Email, a.Password); err != nil {
			m.fail("Failed to authenticate account", err)
			return nil
		}
		m.println(successStyle.Render("Switched to " + a.Email))
		return nil
	}

	m.println(errorStyle.Render("Unknown account " + chosen))
	return nil
}

func (m *Menu) checkMessages(ctx context.Context) {
	m.println(infoStyle.Render("Checking messages..."))

	msgs, err := m.mailbox.ListMessages(ctx)
	if err != nil {
		m.fail("Failed to fetch messages", err)
		return
	}
	if len(msgs) == 0 {
		m.println("No messages found")
		return
	}
	m.println(successStyle.Render(fmt.Sprintf("You have %d messages:", len(msgs))))
	m.println(messageTable(msgs))
}

func (m *Menu) waitForMessages(ctx context.Context) error {
	m.println(infoStyle.Render("Waiting for new messages..."))

	defInterval := int(m.waitInterval / time.Second)
	rawInterval, err := m.prompt.Input(
		fmt.Sprintf("Enter check interval in seconds (default %d):", defInterval), "",
	)
	if err != nil {
		return err
	}
	rawChecks, err := m.prompt.Input(
		fmt.Sprintf("Enter maximum number of checks (default %d):", m.waitChecks), "",
	)
	if err != nil {
		return err
	}

	interval, checks, ok := parseWaitArgs(rawInterval, rawChecks, m.waitInterval, m.waitChecks)
	if !ok {
		m.println(errorStyle.Render("Invalid input. Using default values."))
	}

	res, err := m.mailbox.WaitForNew(ctx, interval, checks)
	switch {
	case errors.Is(err, mailtm.ErrWaitTimeout):
		m.println("No new messages received")
	case err != nil:
		m.fail("Failed to wait for messages", err)
	default:
		m.println(successStyle.Render(fmt.Sprintf("%d new message(s) received!", len(res.New))))
		m.println(messageTable(res.New))
	}
	return nil
}

// parseWaitArgs parses the interval and check count. Blank input selects
// the default. Any unparsable or non-positive value resets both to the
// defaults and reports ok=false.
func parseWaitArgs(rawInterval, rawChecks string, defInterval time.Duration, defChecks int) (time.Duration, int, bool) {
	interval, checks := defInterval, defChecks

	if s := strings.TrimSpace(rawInterval); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return defInterval, defChecks, false
		}
		interval = time.Duration(n) * time.Second
	}
	if s := strings.TrimSpace(rawChecks); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return defInterval, defChecks, false
		}
		checks = n
	}
	return interval, checks, true
}

func (m *Menu) searchMessages(ctx context.Context) error {
	query, err := m.prompt.Input("Enter search term:", "")
	if err != nil {
		return err
	}

	results, err := m.mailbox.Search(ctx, query)
	if err != nil {
		m.fail("Search failed", err)
		return nil
	}
	if len(results) == 0 {
		m.println(errorStyle.Render("No messages found"))
		return nil
	}
	m.println(successStyle.Render(fmt.Sprintf("Found %d messages:", len(results))))
	m.println(messageTable(results))
	return nil
}

func (m *Menu) viewMessage(ctx context.Context) error {
	id, err := m.prompt.Input("Enter message ID:", "")
	if err != nil {
		return err
	}

	text, err := m.mailbox.RenderPlaintext(ctx, id)
	if err != nil {
		m.fail("Failed to fetch message", err)
		return nil
	}
	m.println(text)
	return nil
}

func (m *Menu) deleteMessage(ctx context.Context) error {
	id, err := m.prompt.Input("Enter message ID to delete:", "")
	if err != nil {
		return err
	}

	if err := m.mailbox.Delete(ctx, id); err != nil {
		m.fail("Failed to delete message", err)
		return nil
	}
	m.println(successStyle.Render("Message deleted successfully"))
	return nil
}

func (m *Menu) saveMessage(ctx context.Context) error {
	id, err := m.prompt.Input("Enter message ID to save:", "")
	if err != nil {
		return err
	}

	path, err := m.mailbox.ExportToFile(ctx, id)
	if err != nil {
		m.fail("Failed to save message", err)
		return nil
	}
	m.println(successStyle.Render("Message saved to " + path))
	return nil
}

// fail prints a user-facing failure line. Missing sessions get a hint
// instead of the raw error.
func (m *Menu) fail(what string, err error) {
	m.log.Debug().Err(err).Msg(what)
	if errors.Is(err, mailtm.ErrUnauthenticated) {
		m.println(errorStyle.Render("No active account. Create one (1) or switch to a saved one (0)."))
		return
	}
	m.println(errorStyle.Render(fmt.Sprintf("%s: %v", what, err)))
}

func (m *Menu) pause() error {
	err := m.prompt.Pause()
	if errors.Is(err, ErrAborted) {
		return nil
	}
	return err
}

func (m *Menu) println(s string) {
	fmt.Fprintln(m.out, s)
}

// messageTable renders a listing as a bordered table.
func messageTable(msgs []mailtm.MessageSummary) string {
	t := table.New().
		Headers("ID", "FROM", "SUBJECT", "DATE", "ATT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		})

	for _, msg := range msgs {
		att := ""
		if msg.HasAttachments {
			att = "yes"
		}
		t.Row(
			msg.ID,
			orNA(msg.From.Address),
			orNA(msg.Subject),
			msg.CreatedAt,
			att,
		)
	}
	return t.Render()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
