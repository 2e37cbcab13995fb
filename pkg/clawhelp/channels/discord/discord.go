// Package discord implements the Discord channel using discordgo.
//
// Guild messages are reported as group messages addressed by channel ID;
// direct messages are reported as user messages and replies are sent
// through the user's DM channel.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
)

// Name is the channel identifier.
const Name = "discord"

// Config holds Discord channel configuration.
type Config struct {
	// Token is the bot token (without the "Bot " prefix).
	Token string `yaml:"token"`

	// RespondToGroups enables responding in guild channels.
	RespondToGroups bool `yaml:"respond_to_groups"`

	// RespondToDMs enables responding in direct messages.
	RespondToDMs bool `yaml:"respond_to_dms"`
}

// DefaultConfig returns a Config with groups and DMs enabled.
func DefaultConfig() Config {
	return Config{RespondToGroups: true, RespondToDMs: true}
}

// session is the subset of *discordgo.Session used for sending.
type session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Discord implements channels.Channel.
type Discord struct {
	cfg    Config
	logger *slog.Logger

	dg     *discordgo.Session
	api    session
	selfID string

	messages chan *channels.IncomingMessage

	connected  atomic.Bool
	errorCount atomic.Int64
	lastMsg    atomic.Int64

	// dmChannels caches user ID -> DM channel ID.
	dmChannels sync.Map

	// mu guards messages against sends after close.
	mu     sync.RWMutex
	closed bool
}

// New creates a Discord channel.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *channels.IncomingMessage, 64),
	}
}

// Name implements channels.Channel.
func (d *Discord) Name() string { return Name }

// MaxMessageLength implements channels.LimitedChannel.
func (d *Discord) MaxMessageLength() int { return channels.MaxMessageDiscord }

// Connect opens the gateway session.
func (d *Discord) Connect(_ context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: token is required")
	}

	dg, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	dg.AddHandler(d.onReady)
	dg.AddHandler(d.onMessageCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	d.dg = dg
	d.api = dg
	if dg.State != nil && dg.State.User != nil {
		d.selfID = dg.State.User.ID
	}
	d.connected.Store(true)
	d.logger.Info("discord: connected", "bot_id", d.selfID)
	return nil
}

// Disconnect closes the gateway session and the message stream.
func (d *Discord) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.connected.Store(false)

	var err error
	if d.dg != nil {
		err = d.dg.Close()
	}
	close(d.messages)
	d.logger.Info("discord: disconnected")
	return err
}

// Send posts a message to a guild channel or a user's DM channel.
func (d *Discord) Send(_ context.Context, to channels.Target, msg *channels.OutgoingMessage) error {
	if !d.connected.Load() || d.api == nil {
		return channels.ErrChannelDisconnected
	}

	channelID, err := d.resolveChannel(to)
	if err != nil {
		return err
	}

	if _, err := d.api.ChannelMessageSend(channelID, msg.Content); err != nil {
		d.errorCount.Add(1)
		return fmt.Errorf("discord: send to %s: %w", to, err)
	}
	return nil
}

func (d *Discord) resolveChannel(to channels.Target) (string, error) {
	switch to.Type {
	case channels.TargetGroup:
		return to.ID, nil
	case channels.TargetUser:
		if id, ok := d.dmChannels.Load(to.ID); ok {
			return id.(string), nil
		}
		ch, err := d.api.UserChannelCreate(to.ID)
		if err != nil {
			return "", fmt.Errorf("discord: open DM with %s: %w", to.ID, err)
		}
		d.dmChannels.Store(to.ID, ch.ID)
		return ch.ID, nil
	default:
		return "", fmt.Errorf("discord: %w: %q", channels.ErrUnsupportedTarget, to.Type)
	}
}

// Receive implements channels.Channel.
func (d *Discord) Receive() <-chan *channels.IncomingMessage { return d.messages }

// IsConnected implements channels.Channel.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Health implements channels.Channel.
func (d *Discord) Health() channels.HealthStatus {
	var last time.Time
	if ts := d.lastMsg.Load(); ts > 0 {
		last = time.Unix(ts, 0)
	}
	return channels.HealthStatus{
		Connected:     d.connected.Load(),
		LastMessageAt: last,
		ErrorCount:    int(d.errorCount.Load()),
		Details:       map[string]any{"bot_id": d.selfID},
	}
}

func (d *Discord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		d.selfID = r.User.ID
	}
}

func (d *Discord) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := d.convert(m)
	if !ok {
		return
	}
	d.lastMsg.Store(time.Now().Unix())
	d.deliver(msg)
}

func (d *Discord) deliver(msg *channels.IncomingMessage) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.messages <- msg:
	default:
		d.logger.Warn("discord: inbound buffer full, dropping message", "id", msg.ID)
	}
}

// convert maps a discordgo event to an IncomingMessage, filtering out bot
// authors and conversations the config disables.
func (d *Discord) convert(m *discordgo.MessageCreate) (*channels.IncomingMessage, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return nil, false
	}
	if m.Author.Bot || m.Author.ID == d.selfID {
		return nil, false
	}

	isGroup := m.GuildID != ""
	if isGroup && !d.cfg.RespondToGroups {
		return nil, false
	}
	if !isGroup && !d.cfg.RespondToDMs {
		return nil, false
	}

	d.dmChannelHint(m, isGroup)

	return &channels.IncomingMessage{
		ID:        m.ID,
		Channel:   Name,
		From:      m.Author.ID,
		FromName:  m.Author.Username,
		ChatID:    m.ChannelID,
		IsGroup:   isGroup,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Metadata: map[string]any{
			"guild_id": m.GuildID,
		},
	}, true
}

// dmChannelHint remembers the DM channel of a user who wrote to us directly.
func (d *Discord) dmChannelHint(m *discordgo.MessageCreate, isGroup bool) {
	if !isGroup {
		d.dmChannels.Store(m.Author.ID, m.ChannelID)
	}
}
