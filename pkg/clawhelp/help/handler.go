// Package help implements the help command: it lists the registered commands
// or shows the details of one of them, and sends the text back to the chat
// the request came from.
package help

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/render"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// Registry is the read side of the command registry used by the handler.
type Registry interface {
	Commands() []string
	VisibleCommands() []string
	Command(name string) (command.Record, bool)
	Aliases() command.AliasMap
}

// ErrorPolicy decides what the user sees when handling fails.
type ErrorPolicy int

const (
	// PolicyNotify logs the failure and sends a generic apology to the
	// target, when one was resolved.
	PolicyNotify ErrorPolicy = iota

	// PolicyLog only logs the failure.
	PolicyLog
)

// ParsePolicy maps a settings value to an ErrorPolicy.
func ParsePolicy(s string) ErrorPolicy {
	if strings.EqualFold(strings.TrimSpace(s), settings.PolicyLog) {
		return PolicyLog
	}
	return PolicyNotify
}

func (p ErrorPolicy) String() string {
	if p == PolicyLog {
		return settings.PolicyLog
	}
	return settings.PolicyNotify
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Registry Registry
	Store    settings.Store
	Sender   channels.TextSender
	Logger   *slog.Logger
}

// Handler serves help requests.
type Handler struct {
	registry Registry
	store    settings.Store
	sender   channels.TextSender
	logger   *slog.Logger
}

// NewHandler creates a help handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: d.Registry,
		store:    d.Store,
		sender:   d.Sender,
		logger:   logger.With("component", "help"),
	}
}

// Handle serves one help request and sends the reply. Errors are logged here;
// the returned error is for callers that track failures.
func (h *Handler) Handle(ctx context.Context, evt *command.Event) (err error) {
	logger := h.logger.With("request_id", uuid.NewString())
	policy := PolicyNotify
	cat := render.English

	var target channels.Target
	resolved := false

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("help: panic: %v", r)
		}
		if err == nil {
			return
		}
		logger.Error("failed to handle help command", "error", err, "policy", policy.String())
		if policy == PolicyNotify && resolved {
			if sendErr := h.sender.SendText(ctx, evt.Platform, target, cat.ErrFailure); sendErr != nil {
				logger.Error("failed to send failure notice", "target", target.String(), "error", sendErr)
			}
		}
	}()

	target, err = Target(evt)
	if err != nil {
		return err
	}
	resolved = true

	cfg, err := settings.LoadModule(ctx, h.store, h.logger)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	policy = ParsePolicy(cfg.ErrorPolicy)
	cat = render.CatalogFor(cfg.Locale)

	text := h.Text(ctx, cfg, evt.Args)

	logger.Debug("sending help",
		"platform", evt.Platform,
		"target", target.String(),
		"args", evt.Args,
	)
	if err := h.sender.SendText(ctx, evt.Platform, target, text); err != nil {
		return fmt.Errorf("send help: %w", err)
	}
	return nil
}

// Text builds the reply for args under cfg without sending it.
func (h *Handler) Text(ctx context.Context, cfg settings.ModuleSettings, args []string) string {
	engine := render.New(render.CatalogFor(cfg.Locale))
	opts := render.Options{
		GroupCommands:    cfg.GroupCommands,
		Style:            render.ParseStyle(cfg.Style),
		ShowHiddenBanner: cfg.ShowHiddenCommands,
		Prefix:           settings.CommandPrefix(ctx, h.store),
	}

	records := render.Order(h.records(cfg.ShowHiddenCommands), cfg.GroupCommands)
	aliases := h.registry.Aliases()

	if len(args) == 0 {
		return engine.List(records, aliases, opts)
	}

	rec, msg := lookup(engine.Catalog(), records, args[0])
	if msg != "" {
		return msg
	}
	return engine.Detail(rec, aliases, opts)
}

// records returns the canonical command records, skipping alias keys.
func (h *Handler) records(showHidden bool) []command.Record {
	var names []string
	if showHidden {
		names = h.registry.Commands()
	} else {
		names = h.registry.VisibleCommands()
	}

	out := make([]command.Record, 0, len(names))
	for _, name := range names {
		rec, ok := h.registry.Command(name)
		if ok && name == rec.MainName {
			out = append(out, rec)
		}
	}
	return out
}

// lookup resolves a 1-based index argument. It returns the catalog error
// message when the argument does not select a record.
func lookup(cat *render.Catalog, records []command.Record, arg string) (command.Record, string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return command.Record{}, cat.ErrInvalid
	}
	if len(records) == 0 {
		return command.Record{}, cat.ErrNoCommands
	}
	if n < 1 || n > len(records) {
		return command.Record{}, fmt.Sprintf(cat.ErrRange, len(records))
	}
	return records[n-1], ""
}

// Target derives the reply target of an event: the group for group chats,
// the sender otherwise.
func Target(evt *command.Event) (channels.Target, error) {
	if evt == nil {
		return channels.Target{}, fmt.Errorf("help: nil event")
	}
	if evt.IsGroup() {
		if evt.GroupID == "" {
			return channels.Target{}, fmt.Errorf("help: group event without group id")
		}
		return channels.GroupTarget(evt.GroupID), nil
	}
	if evt.UserID == "" {
		return channels.Target{}, fmt.Errorf("help: event without user id")
	}
	return channels.UserTarget(evt.UserID), nil
}
