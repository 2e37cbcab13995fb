package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/help"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/scheduler"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// App wires the registry, the help module, the command catalog and the
// channels into a running bot.
type App struct {
	Registry   *command.Registry
	Channels   *channels.Manager
	Help       *help.Module
	Dispatcher *Dispatcher

	handler *help.Handler
	store   settings.Store
	logger  *slog.Logger
	started time.Time

	metrics *Metrics
	probe   SystemProbe

	catalogMu sync.Mutex
	catalog   []*command.Handle
}

// Option configures an App.
type Option func(*App)

// WithDispatchMetrics records dispatch metrics in m.
func WithDispatchMetrics(m *Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithStatusCommand registers the "status" command backed by probe.
func WithStatusCommand(probe SystemProbe) Option {
	return func(a *App) { a.probe = probe }
}

// NewApp builds the bot and loads the help module. Catalog entries that
// clash with registered commands are logged and skipped.
func NewApp(store settings.Store, catalog *Catalog, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Registry: command.NewRegistry(logger),
		Channels: channels.NewManager(logger),
		store:    store,
		logger:   logger.With("component", "app"),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.handler = help.NewHandler(help.Deps{
		Registry: a.Registry,
		Store:    store,
		Sender:   a.Channels,
		Logger:   logger,
	})
	a.Help = help.NewModule(a.handler, a.Registry, logger)
	if err := a.Help.Load(); err != nil {
		return nil, fmt.Errorf("loading help module: %w", err)
	}

	if a.probe != nil {
		if _, err := a.Registry.Register(a.statusSpec(a.probe)); err != nil {
			return nil, fmt.Errorf("registering status command: %w", err)
		}
	}

	if catalog != nil {
		if err := a.ReloadCatalog(catalog); err != nil {
			a.logger.Warn("some catalog commands were not registered", "error", err)
		}
	}

	a.Dispatcher = NewDispatcher(a.Registry, store, logger, WithMetrics(a.metrics))
	return a, nil
}

// ReloadCatalog replaces the commands registered from the previous catalog
// with the entries of catalog. Built-in commands are left alone.
func (a *App) ReloadCatalog(catalog *Catalog) error {
	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()

	for _, h := range a.catalog {
		a.Registry.Unregister(h)
	}
	handles, err := catalog.Register(a.Registry, a.Channels, a.logger)
	a.catalog = handles
	return err
}

// CatalogCommands lists the names registered from the current catalog.
func (a *App) CatalogCommands() []string {
	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()

	names := make([]string, 0, len(a.catalog))
	for _, h := range a.catalog {
		names = append(names, h.Name())
	}
	return names
}

// HelpText renders the help reply for args using the stored settings.
func (a *App) HelpText(ctx context.Context, args []string) (string, error) {
	cfg, err := settings.LoadModule(ctx, a.store, a.logger)
	if err != nil {
		return "", err
	}
	return a.handler.Text(ctx, cfg, args), nil
}

// RunJob runs a scheduled command as if it had been typed into the job's
// conversation.
func (a *App) RunJob(ctx context.Context, job *scheduler.Job) error {
	msg := &channels.IncomingMessage{
		ID:      uuid.New().String(),
		Channel: job.Channel,
		From:    job.ChatID,
		ChatID:  job.ChatID,
		IsGroup: job.Group,
		Content: settings.CommandPrefix(ctx, a.store) + job.Command,
	}
	if !a.Dispatcher.Dispatch(ctx, msg) {
		return fmt.Errorf("job %s: %q is not a registered command", job.ID, job.Command)
	}
	return nil
}

// Run starts the registered channels and dispatches commands until ctx is
// done. Channels are stopped and the help module unloaded before it returns.
func (a *App) Run(ctx context.Context) error {
	if err := a.Channels.Start(ctx); err != nil {
		_ = a.Channels.Stop()
		return err
	}

	a.Dispatcher.Run(ctx, a.Channels.Messages())

	err := a.Channels.Stop()
	if uerr := a.Help.Unload(); uerr != nil {
		a.logger.Warn("failed to unload help module", "error", uerr)
	}
	return err
}
