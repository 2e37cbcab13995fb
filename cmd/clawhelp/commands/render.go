package commands

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/bot"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// newRenderCmd creates the `clawhelp render` command.
func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the help text without connecting to any channel",
		Long: `Render the help reply for the configured command catalog using
throwaway settings. Nothing is written to the settings store.

Examples:
  clawhelp render
  clawhelp render --index 3
  clawhelp render --style detailed --flat --locale zh
  clawhelp render --copy`,
		RunE: runRender,
	}

	cmd.Flags().Int("index", 0, "show the details of the numbered command")
	cmd.Flags().String("locale", "", "message catalog (en, zh)")
	cmd.Flags().String("style", settings.StyleSimple, "entry style (simple, detailed)")
	cmd.Flags().String("prefix", "", "command prefix (default from config)")
	cmd.Flags().String("catalog", "", "command catalog file (default from config)")
	cmd.Flags().Bool("show-hidden", false, "include hidden commands")
	cmd.Flags().Bool("flat", false, "do not group commands")
	cmd.Flags().Bool("copy", false, "also copy the text to the clipboard")
	return cmd
}

// copyToClipboard puts text on the system clipboard.
var copyToClipboard = clipboard.WriteAll

// renderOptions are the flag values of `clawhelp render`.
type renderOptions struct {
	index      int
	hasIndex   bool
	locale     string
	style      string
	prefix     string
	catalog    string
	showHidden bool
	flat       bool
	copy       bool
	status     bool
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	opts := renderOptions{
		locale:  cfg.Locale,
		prefix:  cfg.Prefix,
		catalog: cfg.CatalogPath,
		status:  cfg.StatusCommand,
	}
	opts.index, _ = cmd.Flags().GetInt("index")
	opts.hasIndex = cmd.Flags().Changed("index")
	opts.style, _ = cmd.Flags().GetString("style")
	opts.showHidden, _ = cmd.Flags().GetBool("show-hidden")
	opts.flat, _ = cmd.Flags().GetBool("flat")
	opts.copy, _ = cmd.Flags().GetBool("copy")
	if v, _ := cmd.Flags().GetString("locale"); v != "" {
		opts.locale = v
	}
	if v, _ := cmd.Flags().GetString("prefix"); v != "" {
		opts.prefix = v
	}
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		opts.catalog = v
	}

	return renderHelp(cmd, opts, cmd.OutOrStdout())
}

func renderHelp(cmd *cobra.Command, opts renderOptions, out io.Writer) error {
	ctx := cmd.Context()
	store := settings.NewMemoryStore()
	if err := settings.Seed(ctx, store, opts.prefix, opts.locale); err != nil {
		return err
	}
	ms, err := settings.LoadModule(ctx, store, nil)
	if err != nil {
		return err
	}
	ms.Style = opts.style
	ms.ShowHiddenCommands = opts.showHidden
	ms.GroupCommands = !opts.flat
	if err := settings.SaveModule(ctx, store, ms); err != nil {
		return err
	}

	catalog, err := bot.LoadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	var appOpts []bot.Option
	if opts.status {
		appOpts = append(appOpts, bot.WithStatusCommand(bot.HostProbe()))
	}
	app, err := bot.NewApp(store, catalog, slog.New(slog.NewTextHandler(io.Discard, nil)), appOpts...)
	if err != nil {
		return err
	}

	var args []string
	if opts.hasIndex {
		args = []string{strconv.Itoa(opts.index)}
	}
	text, err := app.HelpText(ctx, args)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, text); err != nil {
		return err
	}
	if opts.copy {
		if err := copyToClipboard(text); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
	}
	return nil
}
