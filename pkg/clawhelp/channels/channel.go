// Package channels defines the chat surfaces the help module replies to.
// Each platform (Discord, Telegram, web chat, terminal) implements Channel;
// the Manager aggregates their inbound messages and routes replies.
package channels

import (
	"context"
	"errors"
	"time"
)

// Channel is implemented by every chat platform adapter.
type Channel interface {
	// Name returns the platform identifier (e.g. "discord", "telegram").
	Name() string

	// Connect establishes the connection. Must be called before Send/Receive.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and releases goroutines.
	Disconnect() error

	// Send delivers a message to the target.
	Send(ctx context.Context, to Target, message *OutgoingMessage) error

	// Receive returns the stream of inbound messages. It is closed on Disconnect.
	Receive() <-chan *IncomingMessage

	// IsConnected reports whether the channel is usable.
	IsConnected() bool

	// Health returns a snapshot for diagnostics.
	Health() HealthStatus
}

// LimitedChannel is implemented by channels with a per-message length cap.
type LimitedChannel interface {
	MaxMessageLength() int
}

// TargetType is the kind of conversation a reply goes to.
type TargetType string

// Target kinds.
const (
	TargetUser  TargetType = "user"
	TargetGroup TargetType = "group"
)

// Target identifies the recipient of a reply.
type Target struct {
	Type TargetType
	ID   string
}

// UserTarget addresses a direct conversation with a user.
func UserTarget(id string) Target { return Target{Type: TargetUser, ID: id} }

// GroupTarget addresses a group conversation.
func GroupTarget(id string) Target { return Target{Type: TargetGroup, ID: id} }

func (t Target) String() string { return string(t.Type) + ":" + t.ID }

// IncomingMessage is a message received from any channel.
type IncomingMessage struct {
	// ID is the message identifier on the source platform.
	ID string

	// Channel names the source channel.
	Channel string

	// From identifies the sender.
	From string

	// FromName is the sender's display name, when known.
	FromName string

	// ChatID identifies the conversation (group or DM).
	ChatID string

	// IsGroup is true for group conversations.
	IsGroup bool

	// Content is the message text.
	Content string

	Timestamp time.Time

	// Metadata holds platform-specific extras.
	Metadata map[string]any
}

// ReplyTarget returns where a reply to msg should be sent.
func (m *IncomingMessage) ReplyTarget() Target {
	if m.IsGroup {
		return GroupTarget(m.ChatID)
	}
	return UserTarget(m.From)
}

// OutgoingMessage is a message to be sent by a channel.
type OutgoingMessage struct {
	Content string

	// ReplyTo is the message being answered, if the platform supports it.
	ReplyTo string

	Metadata map[string]any
}

// HealthStatus is a channel health snapshot.
type HealthStatus struct {
	Connected     bool
	LastMessageAt time.Time
	ErrorCount    int
	Details       map[string]any
}

// TextSender delivers plain text to a target on a named platform.
type TextSender interface {
	SendText(ctx context.Context, platform string, to Target, text string) error
}

var (
	// ErrChannelDisconnected indicates the channel is not connected.
	ErrChannelDisconnected = errors.New("channel is not connected")

	// ErrChannelNotFound indicates no channel is registered under the name.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrUnsupportedTarget indicates the channel cannot address the target.
	ErrUnsupportedTarget = errors.New("unsupported target")
)
