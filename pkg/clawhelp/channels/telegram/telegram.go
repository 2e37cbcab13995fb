// Package telegram implements the Telegram channel using the Bot API long
// polling interface.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
)

// Name is the channel identifier.
const Name = "telegram"

// Config holds Telegram channel configuration.
type Config struct {
	Token string `yaml:"token"`

	// PollTimeout is the long polling timeout in seconds.
	PollTimeout int `yaml:"poll_timeout"`

	RespondToGroups bool `yaml:"respond_to_groups"`
	RespondToDMs    bool `yaml:"respond_to_dms"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{PollTimeout: 60, RespondToGroups: true, RespondToDMs: true}
}

// BotAPI abstracts the Telegram bot methods used by the channel.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Telegram implements channels.Channel.
type Telegram struct {
	cfg    Config
	logger *slog.Logger

	bot BotAPI

	messages chan *channels.IncomingMessage
	done     chan struct{}
	wg       sync.WaitGroup

	connected  atomic.Bool
	errorCount atomic.Int64
	lastMsg    atomic.Int64

	closeOnce sync.Once
}

// New creates a Telegram channel.
func New(cfg Config, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}
	return &Telegram{
		cfg:      cfg,
		logger:   logger.With("component", "telegram"),
		messages: make(chan *channels.IncomingMessage, 64),
		done:     make(chan struct{}),
	}
}

// Name implements channels.Channel.
func (t *Telegram) Name() string { return Name }

// MaxMessageLength implements channels.LimitedChannel.
func (t *Telegram) MaxMessageLength() int { return channels.MaxMessageTelegram }

// Connect authenticates the bot and starts polling for updates.
func (t *Telegram) Connect(ctx context.Context) error {
	if t.bot == nil {
		if t.cfg.Token == "" {
			return fmt.Errorf("telegram: token is required")
		}
		api, err := tgbotapi.NewBotAPI(t.cfg.Token)
		if err != nil {
			return fmt.Errorf("telegram: authenticate: %w", err)
		}
		t.logger.Info("telegram: authorized", "bot", api.Self.UserName)
		t.bot = api
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.cfg.PollTimeout
	updates := t.bot.GetUpdatesChan(u)

	t.connected.Store(true)
	t.wg.Add(1)
	go t.poll(ctx, updates)
	return nil
}

func (t *Telegram) poll(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			msg, keep := t.convert(upd)
			if !keep {
				continue
			}
			t.lastMsg.Store(time.Now().Unix())
			select {
			case t.messages <- msg:
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// convert maps an update to an IncomingMessage. Non-message updates, bot
// authors and disabled conversation kinds are skipped.
func (t *Telegram) convert(upd tgbotapi.Update) (*channels.IncomingMessage, bool) {
	m := upd.Message
	if m == nil || m.Chat == nil || m.From == nil || m.From.IsBot {
		return nil, false
	}

	isGroup := m.Chat.IsGroup() || m.Chat.IsSuperGroup()
	if isGroup && !t.cfg.RespondToGroups {
		return nil, false
	}
	if !isGroup && !t.cfg.RespondToDMs {
		return nil, false
	}

	return &channels.IncomingMessage{
		ID:        strconv.Itoa(m.MessageID),
		Channel:   Name,
		From:      strconv.FormatInt(m.From.ID, 10),
		FromName:  m.From.UserName,
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		IsGroup:   isGroup,
		Content:   m.Text,
		Timestamp: m.Time(),
		Metadata: map[string]any{
			"chat_type": m.Chat.Type,
		},
	}, true
}

// Disconnect stops polling and closes the message stream.
func (t *Telegram) Disconnect() error {
	t.closeOnce.Do(func() {
		t.connected.Store(false)
		close(t.done)
		if t.bot != nil {
			t.bot.StopReceivingUpdates()
		}
		t.wg.Wait()
		close(t.messages)
		t.logger.Info("telegram: disconnected")
	})
	return nil
}

// Send delivers a text message. Both user and group targets are chat IDs.
func (t *Telegram) Send(_ context.Context, to channels.Target, msg *channels.OutgoingMessage) error {
	if !t.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	if to.Type != channels.TargetUser && to.Type != channels.TargetGroup {
		return fmt.Errorf("telegram: %w: %q", channels.ErrUnsupportedTarget, to.Type)
	}

	chatID, err := strconv.ParseInt(to.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", to.ID, err)
	}

	out := tgbotapi.NewMessage(chatID, msg.Content)
	if msg.ReplyTo != "" {
		if id, err := strconv.Atoi(msg.ReplyTo); err == nil {
			out.ReplyToMessageID = id
		}
	}
	if _, err := t.bot.Send(out); err != nil {
		t.errorCount.Add(1)
		return fmt.Errorf("telegram: send to %s: %w", to, err)
	}
	return nil
}

// Receive implements channels.Channel.
func (t *Telegram) Receive() <-chan *channels.IncomingMessage { return t.messages }

// IsConnected implements channels.Channel.
func (t *Telegram) IsConnected() bool { return t.connected.Load() }

// Health implements channels.Channel.
func (t *Telegram) Health() channels.HealthStatus {
	var last time.Time
	if ts := t.lastMsg.Load(); ts > 0 {
		last = time.Unix(ts, 0)
	}
	return channels.HealthStatus{
		Connected:     t.connected.Load(),
		LastMessageAt: last,
		ErrorCount:    int(t.errorCount.Load()),
	}
}
