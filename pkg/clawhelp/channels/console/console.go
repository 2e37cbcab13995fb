// Package console implements a terminal channel backed by readline, used by
// "clawhelp chat" to try commands locally.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
)

// Name is the channel identifier.
const Name = "console"

// Config holds console channel configuration.
type Config struct {
	// User is the sender ID attached to every line typed.
	User string `yaml:"user"`

	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`

	// Completions are offered on Tab (e.g. "/help").
	Completions []string `yaml:"-"`
}

// DefaultConfig returns the default console configuration.
func DefaultConfig() Config {
	return Config{User: "local", Prompt: "\033[36myou>\033[0m "}
}

// LineReader reads one line of input at a time.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Console implements channels.Channel over a terminal.
type Console struct {
	cfg    Config
	logger *slog.Logger

	in  LineReader
	out io.Writer

	messages chan *channels.IncomingMessage
	done     chan struct{}
	seq      atomic.Int64

	connected  atomic.Bool
	errorCount atomic.Int64
	lastMsg    atomic.Int64

	mu     sync.RWMutex
	closed bool

	writeMu sync.Mutex
}

// Option configures a Console.
type Option func(*Console)

// WithIO replaces readline with the given reader and writer.
func WithIO(in LineReader, out io.Writer) Option {
	return func(c *Console) {
		c.in = in
		c.out = out
	}
}

// New creates a console channel.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.User == "" {
		cfg.User = DefaultConfig().User
	}
	c := &Console{
		cfg:      cfg,
		logger:   logger.With("component", "console"),
		messages: make(chan *channels.IncomingMessage, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements channels.Channel.
func (c *Console) Name() string { return Name }

// Connect opens the terminal and starts reading lines.
func (c *Console) Connect(_ context.Context) error {
	if c.in == nil {
		items := make([]readline.PrefixCompleterInterface, 0, len(c.cfg.Completions))
		for _, s := range c.cfg.Completions {
			items = append(items, readline.PcItem(s))
		}
		rl, err := readline.NewEx(&readline.Config{
			Prompt:            c.cfg.Prompt,
			HistoryFile:       c.cfg.HistoryFile,
			HistoryLimit:      1000,
			AutoComplete:      readline.NewPrefixCompleter(items...),
			InterruptPrompt:   "^C",
			EOFPrompt:         "exit",
			HistorySearchFold: true,
		})
		if err != nil {
			return fmt.Errorf("console: open terminal: %w", err)
		}
		c.in = rl
		c.out = rl.Stdout()
	}
	if c.out == nil {
		c.out = os.Stdout
	}

	c.connected.Store(true)
	go c.readLoop()
	return nil
}

func (c *Console) readLoop() {
	defer close(c.done)
	for {
		line, err := c.in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("console: read stopped", "error", err)
			}
			c.connected.Store(false)
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		c.deliver(input)
	}
}

func (c *Console) deliver(input string) {
	now := time.Now()
	msg := &channels.IncomingMessage{
		ID:        strconv.FormatInt(c.seq.Add(1), 10),
		Channel:   Name,
		From:      c.cfg.User,
		FromName:  c.cfg.User,
		ChatID:    c.cfg.User,
		Content:   input,
		Timestamp: now,
	}
	c.lastMsg.Store(now.Unix())

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.messages <- msg:
	default:
		c.logger.Warn("console: input buffer full, dropping line")
	}
}

// Done is closed when the input stream ends (Ctrl+D or Disconnect).
func (c *Console) Done() <-chan struct{} { return c.done }

// Disconnect closes the terminal and the message stream.
func (c *Console) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.connected.Store(false)

	var err error
	if c.in != nil {
		err = c.in.Close()
	}
	close(c.messages)
	return err
}

// Send prints a reply. Only the local user can be addressed.
func (c *Console) Send(_ context.Context, to channels.Target, msg *channels.OutgoingMessage) error {
	if c.out == nil {
		return channels.ErrChannelDisconnected
	}
	if to.Type != channels.TargetUser || to.ID != c.cfg.User {
		return fmt.Errorf("console: %w: %s", channels.ErrUnsupportedTarget, to)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := fmt.Fprintln(c.out, msg.Content); err != nil {
		c.errorCount.Add(1)
		return fmt.Errorf("console: write: %w", err)
	}
	return nil
}

// Receive implements channels.Channel.
func (c *Console) Receive() <-chan *channels.IncomingMessage { return c.messages }

// IsConnected implements channels.Channel. Replies can still be printed
// after the input ends.
func (c *Console) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.out != nil
}

// Health implements channels.Channel.
func (c *Console) Health() channels.HealthStatus {
	var last time.Time
	if ts := c.lastMsg.Load(); ts > 0 {
		last = time.Unix(ts, 0)
	}
	return channels.HealthStatus{
		Connected:     c.connected.Load(),
		LastMessageAt: last,
		ErrorCount:    int(c.errorCount.Load()),
	}
}
