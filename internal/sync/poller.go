package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/internal/model"
	"github.com/nhle/tempbox/internal/store"
)

// Mailbox is the part of the mail client the poller needs.
type Mailbox interface {
	ListMessages(ctx context.Context) ([]mailtm.MessageSummary, error)
	Account() (mailtm.Account, bool)
}

// RefreshResultMsg is a tea.Msg sent after every poll.
type RefreshResultMsg struct {
	// Address is the mailbox that was polled.
	Address string

	// Messages is the full listing. Nil when Err is set.
	Messages []mailtm.MessageSummary

	// New holds messages whose ids were not in the previous listing. The
	// first poll of a loop never reports new messages.
	New []mailtm.MessageSummary

	Err error

	// AuthExpired is set when the provider rejected the session token.
	AuthExpired bool

	// Generation identifies the loop that produced the result. See
	// Poller.Current.
	Generation uint64
}

// fetchTimeout is the maximum time allowed for a single listing.
const fetchTimeout = 30 * time.Second

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 30 * time.Second

// Poller refreshes the active mailbox in the background. At most one loop
// runs at a time; results are delivered to the Bubble Tea runtime as
// RefreshResultMsg values. Each loop has its own result channel, closed
// by Stop, so a listener never sees a later loop's results.
type Poller struct {
	mailbox  Mailbox
	notes    store.NotificationStore
	interval time.Duration
	log      zerolog.Logger

	triggerCh chan struct{}

	mu         gosync.Mutex
	running    bool
	generation uint64
	resultCh   chan RefreshResultMsg
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      gosync.WaitGroup
}

// New creates a Poller for mb. notes may be nil when the account store
// does not keep notifications.
func New(mb Mailbox, notes store.NotificationStore, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		mailbox:   mb,
		notes:     notes,
		interval:  interval,
		log:       log,
		triggerCh: make(chan struct{}, 1),
	}
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Running reports whether a polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start launches the polling loop for the current account and returns a
// tea.Cmd that waits for its first result. Starting while a loop runs, or
// without an authenticated account, returns nil.
func (p *Poller) Start() tea.Cmd {
	acct, ok := p.mailbox.Account()
	if !ok {
		return nil
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.generation++
	p.stopCh = make(chan struct{})
	results := make(chan RefreshResultMsg, 16)
	p.resultCh = results
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	r := loop{
		address:    acct.Address,
		generation: p.generation,
		stopCh:     p.stopCh,
		results:    results,
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.poll(ctx, r)

	return waitForResult(results)
}

// Stop halts the polling loop and waits for it to exit. An in-flight
// listing is cancelled.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.cancel()
	p.running = false
	results := p.resultCh
	p.resultCh = nil
	p.mu.Unlock()

	p.wg.Wait()
	// The loop has exited; waiting listeners wake up with nil.
	close(results)
}

// Current reports whether msg came from the loop that is running now.
// Results of a stopped loop must be dropped.
func (p *Poller) Current(msg RefreshResultMsg) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running && msg.Generation == p.generation
}

// Refresh asks the running loop to poll now. It never blocks.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// loop is the state owned by one polling goroutine.
type loop struct {
	address    string
	generation uint64
	stopCh     <-chan struct{}
	results    chan<- RefreshResultMsg
}

// send delivers a result without blocking. A full buffer drops it.
func (l loop) send(msg RefreshResultMsg) {
	msg.Address = l.address
	msg.Generation = l.generation
	select {
	case l.results <- msg:
	default:
	}
}

// poll runs the loop for one account.
func (p *Poller) poll(ctx context.Context, l loop) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var seen map[string]struct{}
	seen = p.fetch(ctx, l, seen)

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			seen = p.fetch(ctx, l, seen)
		case <-p.triggerCh:
			seen = p.fetch(ctx, l, seen)
		}
	}
}

// fetch lists the mailbox once, reports the result and returns the id set
// to compare the next listing against. A failed listing keeps prev.
func (p *Poller) fetch(ctx context.Context, l loop, prev map[string]struct{}) map[string]struct{} {
	address := l.address
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	msgs, err := p.mailbox.ListMessages(ctx)
	if ctx.Err() != nil && err != nil {
		// Stopped mid-request.
		return prev
	}
	if err != nil {
		p.log.Warn().Err(err).Str("address", address).Msg("auto-refresh failed")
		l.send(RefreshResultMsg{
			Err:         err,
			AuthExpired: mailtm.IsAuthError(err),
		})
		return prev
	}

	ids := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		ids[m.ID] = struct{}{}
	}

	var fresh []mailtm.MessageSummary
	if prev != nil {
		for _, m := range msgs {
			if _, ok := prev[m.ID]; !ok {
				fresh = append(fresh, m)
			}
		}
	}

	if len(fresh) > 0 {
		p.log.Info().Str("address", address).Int("count", len(fresh)).Msg("new messages")
		p.notify(ctx, address, fresh)
	}

	l.send(RefreshResultMsg{
		Messages: msgs,
		New:      fresh,
	})
	return ids
}

// notify records a notification per new message.
func (p *Poller) notify(ctx context.Context, address string, fresh []mailtm.MessageSummary) {
	if p.notes == nil {
		return
	}
	for _, m := range fresh {
		n := model.Notification{
			AccountEmail: address,
			MessageID:    m.ID,
			Message:      fmt.Sprintf("New message from %s: %s", m.From.Address, m.Subject),
			CreatedAt:    time.Now(),
		}
		if err := p.notes.CreateNotification(ctx, n); err != nil {
			p.log.Warn().Err(err).Str("message_id", m.ID).Msg("recording notification")
		}
	}
}

// waitForResult returns a tea.Cmd that waits for the next result on ch.
// It yields nil once ch is closed.
func waitForResult(ch <-chan RefreshResultMsg) tea.Cmd {
	return func() tea.Msg {
		result, ok := <-ch
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the running loop's
// next result. Call it after handling a current RefreshResultMsg to keep
// listening. Returns nil when no loop runs.
func (p *Poller) WaitForNextResult() tea.Cmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	return waitForResult(p.resultCh)
}
