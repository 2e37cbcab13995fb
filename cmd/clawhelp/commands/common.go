package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/bot"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/config"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/paths"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// resolveConfig loads the --config file, or the discovered one.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if configPath == "" {
		configPath = paths.ResolveConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

// newLogger builds the slog logger from the logging config and --verbose.
func newLogger(cmd *cobra.Command, cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Logging.Level)
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// openStore opens the configured settings store and seeds it from config.
func openStore(ctx context.Context, cfg *config.Config) (settings.ClosableStore, error) {
	driver := strings.ToLower(cfg.Database.Driver)
	if driver == "" || driver == settings.DriverSQLite || driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	store, err := settings.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening settings store: %w", err)
	}
	if err := settings.Seed(ctx, store, cfg.Prefix, cfg.Locale); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seeding settings: %w", err)
	}
	return store, nil
}

// runtime bundles what every bot-running command needs.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	store  settings.ClosableStore
	app    *bot.App

	// registry holds the dispatch metrics; nil when metrics are off.
	registry *prometheus.Registry
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close settings store", "error", err)
	}
}

// newRuntime loads config, opens the store and builds the bot.
func newRuntime(ctx context.Context, cmd *cobra.Command, logOut io.Writer) (*runtime, error) {
	cfg, configPath, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg, logOut)
	logger.Debug("config resolved", "path", configPath)
	if err := paths.EnsureStateDirs(); err != nil {
		logger.Warn("failed to create state directories", "error", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := bot.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, store: store}
	var opts []bot.Option
	if cfg.StatusCommand {
		opts = append(opts, bot.WithStatusCommand(bot.HostProbe()))
	}
	if cfg.Metrics.Enabled {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, bot.WithDispatchMetrics(bot.NewMetrics(rt.registry)))
	}

	rt.app, err = bot.NewApp(store, catalog, logger, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return rt, nil
}

func shouldEnable(name string, filter []string, defaultEnabled bool) bool {
	if len(filter) == 0 {
		return defaultEnabled
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}
