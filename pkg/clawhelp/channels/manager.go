// Package channels – manager.go runs several channels at once, fanning their
// inbound messages into one stream and routing replies to the right platform.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Manager orchestrates the registered channels.
type Manager struct {
	channels map[string]Channel

	// messages aggregates inbound messages from every channel.
	messages chan *IncomingMessage

	logger *slog.Logger

	mu     sync.RWMutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
	closed bool
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		channels: make(map[string]Channel),
		messages: make(chan *IncomingMessage, 256),
		logger:   logger.With("component", "channel_manager"),
	}
}

// Register adds a channel. Must be called before Start.
func (m *Manager) Register(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := ch.Name()
	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}
	m.channels[name] = ch
	m.logger.Info("channel registered", "channel", name)
	return nil
}

// Start connects every registered channel and starts listening. Channels that
// fail to connect are logged and skipped; Start fails only if none connect.
func (m *Manager) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var connected int
	for name, ch := range m.channels {
		if err := ch.Connect(ctx); err != nil {
			m.logger.Error("failed to connect channel", "channel", name, "error", err)
			continue
		}
		connected++
		m.logger.Info("channel connected", "channel", name)

		m.wg.Add(1)
		go m.listen(ctx, ch)
	}

	if connected == 0 {
		return fmt.Errorf("no channel connected")
	}
	m.logger.Info("channel manager started", "channels_connected", connected)
	return nil
}

func (m *Manager) listen(ctx context.Context, ch Channel) {
	defer m.wg.Done()

	in := ch.Receive()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				m.logger.Debug("channel stream closed", "channel", ch.Name())
				return
			}
			if msg.Channel == "" {
				msg.Channel = ch.Name()
			}
			select {
			case m.messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Stop disconnects all channels and closes the message stream. Disconnect
// errors are collected and returned together.
func (m *Manager) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var result *multierror.Error
	for name, ch := range m.channels {
		if err := ch.Disconnect(); err != nil {
			m.logger.Error("failed to disconnect channel", "channel", name, "error", err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}

	m.wg.Wait()
	close(m.messages)
	m.logger.Info("channel manager stopped")
	return result.ErrorOrNil()
}

// Messages returns the aggregated inbound stream.
func (m *Manager) Messages() <-chan *IncomingMessage {
	return m.messages
}

// Channel returns a channel by name.
func (m *Manager) Channel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Send delivers msg through the named channel.
func (m *Manager) Send(ctx context.Context, channelName string, to Target, msg *OutgoingMessage) error {
	ch, ok := m.Channel(channelName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrChannelNotFound, channelName)
	}
	if !ch.IsConnected() {
		return fmt.Errorf("%q: %w", channelName, ErrChannelDisconnected)
	}
	return ch.Send(ctx, to, msg)
}

// SendText implements TextSender. Text longer than the channel limit is split
// into several messages, sent in order; the first failure aborts the rest.
func (m *Manager) SendText(ctx context.Context, platform string, to Target, text string) error {
	ch, ok := m.Channel(platform)
	if !ok {
		return fmt.Errorf("%w: %q", ErrChannelNotFound, platform)
	}
	if !ch.IsConnected() {
		return fmt.Errorf("%q: %w", platform, ErrChannelDisconnected)
	}

	limit := MaxMessageDefault
	if lc, ok := ch.(LimitedChannel); ok && lc.MaxMessageLength() > 0 {
		limit = lc.MaxMessageLength()
	}

	chunks := SplitMessage(text, limit)
	for i, chunk := range chunks {
		if err := ch.Send(ctx, to, &OutgoingMessage{Content: chunk}); err != nil {
			return fmt.Errorf("send part %d/%d to %s: %w", i+1, len(chunks), to, err)
		}
	}
	return nil
}

// HealthAll returns the health of every registered channel.
func (m *Manager) HealthAll() map[string]HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]HealthStatus, len(m.channels))
	for name, ch := range m.channels {
		out[name] = ch.Health()
	}
	return out
}
