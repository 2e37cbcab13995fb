package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/scheduler"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// loopChannel echoes injected messages through Receive and records replies.
type loopChannel struct {
	in chan *channels.IncomingMessage

	mu      sync.Mutex
	replies []string
	sent    chan struct{}
	closed  bool
}

func newLoopChannel() *loopChannel {
	return &loopChannel{in: make(chan *channels.IncomingMessage, 8), sent: make(chan struct{}, 8)}
}

func (l *loopChannel) Name() string                  { return "loop" }
func (l *loopChannel) Connect(context.Context) error { return nil }
func (l *loopChannel) Receive() <-chan *channels.IncomingMessage {
	return l.in
}
func (l *loopChannel) IsConnected() bool              { return true }
func (l *loopChannel) Health() channels.HealthStatus { return channels.HealthStatus{Connected: true} }

func (l *loopChannel) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.in)
	}
	return nil
}

func (l *loopChannel) Send(_ context.Context, _ channels.Target, msg *channels.OutgoingMessage) error {
	l.mu.Lock()
	l.replies = append(l.replies, msg.Content)
	l.mu.Unlock()
	l.sent <- struct{}{}
	return nil
}

func (l *loopChannel) waitReply(t *testing.T) string {
	t.Helper()
	select {
	case <-l.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replies[len(l.replies)-1]
}

func TestApp_EndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := settings.NewMemoryStore()
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	app, err := NewApp(store, cat, nil)
	require.NoError(t, err)
	loop := newLoopChannel()
	require.NoError(t, app.Channels.Register(loop))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	loop.in <- &channels.IncomingMessage{ID: "1", From: "u1", ChatID: "u1", Content: "/help"}
	list := loop.waitReply(t)
	assert.Contains(t, list, "[General Commands]")
	assert.Contains(t, list, "[admin Commands]")
	assert.NotContains(t, list, "/debug")

	loop.in <- &channels.IncomingMessage{ID: "2", From: "u1", ChatID: "u1", Content: "/h 1"}
	assert.True(t, strings.HasPrefix(loop.waitReply(t), "Command: /"))

	loop.in <- &channels.IncomingMessage{ID: "3", From: "u1", ChatID: "g1", IsGroup: true, Content: "/p"}
	assert.Equal(t, "pong", loop.waitReply(t))

	cancel()
	require.NoError(t, <-done)
	assert.False(t, app.Help.Loaded())
}

func TestApp_HelpText(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, settings.Seed(ctx, store, "!", "en"))

	app, err := NewApp(store, nil, nil)
	require.NoError(t, err)

	text, err := app.HelpText(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "!help")
	assert.True(t, strings.HasSuffix(text, "1 commands available"))

	text, err = app.HelpText(ctx, []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, "Error: number out of range, enter a number between 1 and 1", text)
}

func TestApp_RunWithoutChannels(t *testing.T) {
	app, err := NewApp(settings.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	assert.Error(t, app.Run(context.Background()))
}

func TestApp_RunJob(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, settings.SetCommandPrefix(ctx, store, "!"))
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	app, err := NewApp(store, cat, nil)
	require.NoError(t, err)
	loop := newLoopChannel()
	require.NoError(t, app.Channels.Register(loop))

	job := &scheduler.Job{ID: "weekly", Channel: "loop", ChatID: "g1", Group: true, Command: "help"}
	require.NoError(t, app.RunJob(ctx, job))
	assert.Contains(t, loop.waitReply(t), "!help")

	job.Command = "ping"
	require.NoError(t, app.RunJob(ctx, job))
	assert.Equal(t, "pong", loop.waitReply(t))

	job.Command = "nothing"
	assert.Error(t, app.RunJob(ctx, job))
}
