// Package command – types.go defines the command records, aliases and the
// inbound event shape shared by the registry, the dispatcher and command
// handlers.
package command

import (
	"context"
	"errors"
)

// DefaultGroup is the implicit group of commands registered without one.
const DefaultGroup = "default"

// Detail types carried by Event.DetailType.
const (
	DetailPrivate = "private"
	DetailGroup   = "group"
)

// Record is the read-only metadata of one registered command.
type Record struct {
	// Name is the canonical command name.
	Name string `json:"name" yaml:"name"`

	// MainName is the canonical name this record resolves to. For records
	// obtained through an alias it still holds the canonical name.
	MainName string `json:"main_name" yaml:"main_name"`

	// Help is a one-line description.
	Help string `json:"help,omitempty" yaml:"help,omitempty"`

	// Usage is an example invocation. Slashes are replaced by the active
	// command prefix when rendered.
	Usage string `json:"usage,omitempty" yaml:"usage,omitempty"`

	// Group is an optional category label. Empty means DefaultGroup.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`

	// Hidden excludes the command from default listings.
	Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// Permission marks commands that require elevated rights.
	Permission bool `json:"permission,omitempty" yaml:"permission,omitempty"`
}

// GroupKey returns the grouping key of the record.
func (r Record) GroupKey() string {
	if r.Group == "" {
		return DefaultGroup
	}
	return r.Group
}

// AliasMap maps an alias to the main name of the command it resolves to.
type AliasMap map[string]string

// Event is one inbound command invocation.
type Event struct {
	// ID is the platform message identifier.
	ID string

	// Platform is the channel name the event came from (e.g. "discord").
	Platform string

	// DetailType is DetailGroup for group chats, DetailPrivate otherwise.
	DetailType string

	// GroupID identifies the group chat when DetailType is DetailGroup.
	GroupID string

	// UserID identifies the sender.
	UserID string

	// Name is the invoked command name as typed (may be an alias).
	Name string

	// Args holds the arguments following the command name.
	Args []string

	// Raw is the full message text.
	Raw string
}

// IsGroup reports whether the event originates from a group chat.
func (e *Event) IsGroup() bool {
	return e.DetailType == DetailGroup
}

// HandlerFunc executes a command.
type HandlerFunc func(ctx context.Context, evt *Event) error

// Spec describes a command to register.
type Spec struct {
	Name       string
	Aliases    []string
	Help       string
	Usage      string
	Group      string
	Hidden     bool
	Permission bool
	Handler    HandlerFunc
}

var (
	// ErrDuplicate is returned when a name or alias is already taken.
	ErrDuplicate = errors.New("command already registered")

	// ErrInvalidSpec is returned for specs without a name or handler.
	ErrInvalidSpec = errors.New("invalid command spec")
)
