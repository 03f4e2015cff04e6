package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempbox/internal/mailtm"
	"github.com/nhle/tempbox/tests/testutil"
)

type fakeMailbox struct {
	mu       gosync.Mutex
	address  string
	messages []mailtm.MessageSummary
	err      error
	calls    int
}

func (f *fakeMailbox) ListMessages(ctx context.Context) ([]mailtm.MessageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]mailtm.MessageSummary, len(f.messages))
	copy(out, f.messages)
	return out, nil
}

func (f *fakeMailbox) Account() (mailtm.Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.address == "" {
		return mailtm.Account{}, false
	}
	return mailtm.Account{Address: f.address, Password: "pw"}, true
}

func (f *fakeMailbox) deliver(id, subject string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append([]mailtm.MessageSummary{{
		ID:      id,
		Subject: subject,
		From:    mailtm.Address{Address: "sender@x.io"},
	}}, f.messages...)
}

func (f *fakeMailbox) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func next(t *testing.T, p *Poller) RefreshResultMsg {
	t.Helper()
	done := make(chan RefreshResultMsg, 1)
	go func() {
		done <- p.WaitForNextResult()().(RefreshResultMsg)
	}()
	select {
	case msg := <-done:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh result")
		return RefreshResultMsg{}
	}
}

func TestPollerDetectsNewMessages(t *testing.T) {
	mb := &fakeMailbox{address: "me@x.io"}
	mb.deliver("A", "first")
	notes := testutil.NewTestStore(t)

	p := New(mb, notes, time.Hour, zerolog.Nop())
	require.NotNil(t, p.Start())
	defer p.Stop()

	first := next(t, p)
	assert.Equal(t, "me@x.io", first.Address)
	assert.Len(t, first.Messages, 1)
	assert.Empty(t, first.New, "first poll only primes the baseline")

	mb.deliver("B", "second")
	p.Refresh()

	second := next(t, p)
	require.NoError(t, second.Err)
	require.Len(t, second.New, 1)
	assert.Equal(t, "B", second.New[0].ID)
	assert.Len(t, second.Messages, 2)

	unread, err := notes.GetUnreadNotifications(context.Background(), "me@x.io")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "B", unread[0].MessageID)
	assert.Equal(t, "New message from sender@x.io: second", unread[0].Message)
}

func TestPollerTicks(t *testing.T) {
	mb := &fakeMailbox{address: "me@x.io"}
	p := New(mb, nil, 10*time.Millisecond, zerolog.Nop())
	require.NotNil(t, p.Start())
	defer p.Stop()

	next(t, p)
	mb.deliver("A", "tick")

	for i := 0; i < 50; i++ {
		if msg := next(t, p); len(msg.New) == 1 {
			assert.Equal(t, "A", msg.New[0].ID)
			return
		}
	}
	t.Fatal("ticker never reported the new message")
}

func TestPollerReportsErrors(t *testing.T) {
	mb := &fakeMailbox{address: "me@x.io"}
	mb.fail(&mailtm.AuthError{Message: "expired"})

	p := New(mb, nil, time.Hour, zerolog.Nop())
	require.NotNil(t, p.Start())
	defer p.Stop()

	msg := next(t, p)
	require.Error(t, msg.Err)
	assert.True(t, msg.AuthExpired)
	assert.Nil(t, msg.Messages)

	mb.fail(errors.New("boom"))
	p.Refresh()
	msg = next(t, p)
	assert.EqualError(t, msg.Err, "boom")
	assert.False(t, msg.AuthExpired)
}

func TestPollerSingleLoop(t *testing.T) {
	mb := &fakeMailbox{address: "me@x.io"}
	p := New(mb, nil, time.Hour, zerolog.Nop())

	require.NotNil(t, p.Start())
	assert.Nil(t, p.Start(), "second start is a no-op")
	assert.True(t, p.Running())
	next(t, p)

	p.Stop()
	assert.False(t, p.Running())
	p.Stop()

	mb.mu.Lock()
	calls := mb.calls
	mb.mu.Unlock()
	p.Refresh()
	time.Sleep(20 * time.Millisecond)
	mb.mu.Lock()
	assert.Equal(t, calls, mb.calls, "stopped loop does not poll")
	mb.mu.Unlock()

	require.NotNil(t, p.Start(), "restart after stop")
	p.Stop()
}

func TestPollerNeedsAccount(t *testing.T) {
	p := New(&fakeMailbox{}, nil, time.Hour, zerolog.Nop())
	assert.Nil(t, p.Start())
	assert.False(t, p.Running())
}

func TestPollerDefaultInterval(t *testing.T) {
	p := New(&fakeMailbox{}, nil, 0, zerolog.Nop())
	assert.Equal(t, DefaultInterval, p.Interval())
}

func TestPollerRestartDropsPreviousAccountResults(t *testing.T) {
	mb := &fakeMailbox{address: "old@x.io"}
	mb.deliver("old1", "for old")

	p := New(mb, nil, time.Hour, zerolog.Nop())
	oldWait := p.Start()
	require.NotNil(t, oldWait)

	// Let the old loop publish without anyone consuming it.
	require.Eventually(t, func() bool {
		mb.mu.Lock()
		defer mb.mu.Unlock()
		return mb.calls == 1
	}, 5*time.Second, 5*time.Millisecond)
	p.Stop()

	mb.mu.Lock()
	mb.address = "new@x.io"
	mb.messages = []mailtm.MessageSummary{{ID: "new1", Subject: "for new"}}
	mb.mu.Unlock()

	newWait := p.Start()
	require.NotNil(t, newWait)
	defer p.Stop()

	done := make(chan tea.Msg, 1)
	go func() { done <- newWait() }()
	var first RefreshResultMsg
	select {
	case msg := <-done:
		first = msg.(RefreshResultMsg)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh result")
	}
	assert.Equal(t, "new@x.io", first.Address)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, "new1", first.Messages[0].ID)
	assert.True(t, p.Current(first))

	// The old listener only sees its own loop's result, which is stale now.
	stale, ok := oldWait().(RefreshResultMsg)
	require.True(t, ok)
	assert.Equal(t, "old@x.io", stale.Address)
	assert.False(t, p.Current(stale))
	assert.Nil(t, oldWait(), "closed channel releases the old listener")
}

func TestPollerNoListenerWhenStopped(t *testing.T) {
	mb := &fakeMailbox{address: "me@x.io"}
	p := New(mb, nil, time.Hour, zerolog.Nop())
	assert.Nil(t, p.WaitForNextResult())

	require.NotNil(t, p.Start())
	msg := next(t, p)
	p.Stop()
	assert.False(t, p.Current(msg))
	assert.Nil(t, p.WaitForNextResult())
}
