// Package bot turns inbound chat messages into command invocations and loads
// the bundled command catalog.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// Resolver resolves a typed command name (or alias) to its handler.
type Resolver interface {
	Handler(name string) (command.HandlerFunc, bool)
}

// Dispatcher reads messages from a channel stream and runs matching commands.
type Dispatcher struct {
	resolver Resolver
	store    settings.Store
	logger   *slog.Logger
	metrics  *Metrics

	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMetrics records dispatch metrics.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a dispatcher. The command prefix is read from store
// on every message so changes apply without a restart.
func NewDispatcher(resolver Resolver, store settings.Store, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		resolver: resolver,
		store:    store,
		logger:   logger.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run consumes messages until ctx is done or the stream closes, then waits
// for in-flight commands.
func (d *Dispatcher) Run(ctx context.Context, messages <-chan *channels.IncomingMessage) {
	defer d.wg.Wait()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Dispatch(ctx, msg)
			}()
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch handles one message. It reports whether a command was run.
// Text without the prefix and unknown commands are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *channels.IncomingMessage) bool {
	prefix := settings.CommandPrefix(ctx, d.store)
	evt, err := ParseEvent(msg, prefix)
	if err != nil {
		d.metrics.ignored(ReasonParseError)
		d.logger.Debug("unparseable command", "channel", msg.Channel, "error", err)
		return false
	}
	if evt == nil {
		d.metrics.ignored(ReasonNoCommand)
		return false
	}

	fn, ok := d.resolver.Handler(evt.Name)
	if !ok {
		d.metrics.ignored(ReasonUnknown)
		d.logger.Debug("unknown command", "channel", msg.Channel, "command", evt.Name)
		return false
	}

	start := time.Now()
	logger := d.logger.With(
		"request_id", uuid.New().String(),
		"channel", msg.Channel,
		"chat_id", msg.ChatID,
		"from", msg.From,
		"command", evt.Name,
	)
	d.metrics.started()
	err = fn(ctx, evt)
	elapsed := time.Since(start)
	d.metrics.finished(evt.Name, elapsed.Seconds(), err)

	if err != nil {
		logger.Error("command failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return true
	}
	logger.Info("command processed", "args", len(evt.Args), "duration_ms", elapsed.Milliseconds())
	return true
}

// ParseEvent builds a command event from msg. It returns nil when the text
// does not start with prefix or names no command.
func ParseEvent(msg *channels.IncomingMessage, prefix string) (*command.Event, error) {
	if msg == nil || prefix == "" {
		return nil, nil
	}
	text := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(text, prefix) {
		return nil, nil
	}

	words, err := shellwords.Parse(strings.TrimPrefix(text, prefix))
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", text, err)
	}
	if len(words) == 0 || words[0] == "" {
		return nil, nil
	}

	evt := &command.Event{
		ID:         msg.ID,
		Platform:   msg.Channel,
		DetailType: command.DetailPrivate,
		UserID:     msg.From,
		Name:       words[0],
		Args:       words[1:],
		Raw:        msg.Content,
	}
	if msg.IsGroup {
		evt.DetailType = command.DetailGroup
		evt.GroupID = msg.ChatID
	}
	return evt, nil
}
