package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/bot"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/discord"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/telegram"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/webchat"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/scheduler"
)

// newServeCmd creates the `clawhelp serve` command that runs the bot.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on the configured chat channels",
		Long: `Connect to every enabled channel (Discord, Telegram, web chat) and
answer commands until interrupted. Scheduled commands, the metrics
endpoint and catalog reloading start when enabled in the config.

Examples:
  clawhelp serve
  clawhelp serve --channel discord
  clawhelp serve --config ./clawhelp.yaml`,
		RunE: runServe,
	}

	cmd.Flags().StringSlice("channel", nil, "channels to enable (discord, telegram, webchat)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger
	cfg.ResolveTokens(logger)

	filter, _ := cmd.Flags().GetStringSlice("channel")
	register := func(ch channels.Channel) {
		if err := rt.app.Channels.Register(ch); err != nil {
			logger.Error("failed to register channel", "channel", ch.Name(), "error", err)
		}
	}

	if shouldEnable(discord.Name, filter, cfg.Channels.Discord.Enabled) {
		register(discord.New(cfg.Channels.Discord.Config, logger))
	}
	if shouldEnable(telegram.Name, filter, cfg.Channels.Telegram.Enabled) {
		register(telegram.New(cfg.Channels.Telegram.Config, logger))
	}
	if shouldEnable(webchat.Name, filter, cfg.Channels.WebChat.Enabled) {
		register(webchat.New(cfg.Channels.WebChat.Config, logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.app.Run(gctx) })

	if rt.registry != nil {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics, rt.registry, logger)
		})
	}

	if cfg.WatchCatalog {
		w, err := bot.NewCatalogWatcher(cfg.CatalogPath, rt.app.ReloadCatalog, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	if len(cfg.Schedules) > 0 {
		sched := scheduler.New(cfg.Schedules, rt.app.RunJob, logger)
		if err := sched.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	}

	logger.Info("clawhelp running. Press Ctrl+C to stop.", "name", cfg.Name)
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
