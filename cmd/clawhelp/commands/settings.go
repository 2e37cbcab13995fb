package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/TylerBrock/colorjson"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// isTerminal reports whether fd is an interactive terminal.
var isTerminal = func(fd int) bool { return term.IsTerminal(fd) }

// newSettingsCmd creates the `clawhelp settings` command group.
func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change the help module settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored settings as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, func(ctx context.Context, store settings.Store) error {
					return showSettings(ctx, store, cmd.OutOrStdout())
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Long: `Change one setting. Keys:
  prefix                command prefix (e.g. "/" or "!")
  show_hidden_commands  true|false
  group_commands        true|false
  style                 simple|detailed
  locale                en|zh
  error_policy          notify|log`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, store settings.Store) error {
					if err := setSetting(ctx, store, args[0], args[1]); err != nil {
						return err
					}
					return showSettings(ctx, store, cmd.OutOrStdout())
				})
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit the settings interactively",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if !isTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("settings edit needs a terminal; use 'clawhelp settings set' instead")
				}
				return withStore(cmd, editSettings)
			},
		},
	)
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store settings.Store) error) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

type settingsView struct {
	Prefix string                  `json:"prefix"`
	Help   settings.ModuleSettings `json:"help"`
}

func showSettings(ctx context.Context, store settings.Store, out io.Writer) error {
	ms, err := settings.LoadModule(ctx, store, nil)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(settingsView{
		Prefix: settings.CommandPrefix(ctx, store),
		Help:   ms,
	})
	if err != nil {
		return err
	}
	var view map[string]any
	if err := json.Unmarshal(raw, &view); err != nil {
		return err
	}

	f := colorjson.NewFormatter()
	f.Indent = 2
	f.DisabledColor = true
	if file, ok := out.(*os.File); ok && isTerminal(int(file.Fd())) {
		f.DisabledColor = false
	}
	data, err := f.Marshal(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func setSetting(ctx context.Context, store settings.Store, key, value string) error {
	if key == "prefix" {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("prefix must not be empty")
		}
		return settings.SetCommandPrefix(ctx, store, value)
	}

	ms, err := settings.LoadModule(ctx, store, nil)
	if err != nil {
		return err
	}
	switch key {
	case "show_hidden_commands", "group_commands":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "show_hidden_commands" {
			ms.ShowHiddenCommands = b
		} else {
			ms.GroupCommands = b
		}
	case "style":
		if value != settings.StyleSimple && value != settings.StyleDetailed {
			return fmt.Errorf("style %q: want simple or detailed", value)
		}
		ms.Style = value
	case "locale":
		ms.Locale = value
	case "error_policy":
		if value != settings.PolicyNotify && value != settings.PolicyLog {
			return fmt.Errorf("error_policy %q: want notify or log", value)
		}
		ms.ErrorPolicy = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return settings.SaveModule(ctx, store, ms)
}

func editSettings(ctx context.Context, store settings.Store) error {
	ms, err := settings.LoadModule(ctx, store, nil)
	if err != nil {
		return err
	}
	prefix := settings.CommandPrefix(ctx, store)

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Command prefix").
				Value(&prefix).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("prefix must not be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Entry style").
				Options(
					huh.NewOption("Simple (one line per command)", settings.StyleSimple),
					huh.NewOption("Detailed (description, aliases, usage)", settings.StyleDetailed),
				).
				Value(&ms.Style),
			huh.NewSelect[string]().
				Title("Language").
				Options(
					huh.NewOption("English", "en"),
					huh.NewOption("中文", "zh"),
				).
				Value(&ms.Locale),
			huh.NewConfirm().
				Title("Group commands by category?").
				Value(&ms.GroupCommands),
			huh.NewConfirm().
				Title("Show hidden commands?").
				Value(&ms.ShowHiddenCommands),
			huh.NewSelect[string]().
				Title("When a help request fails").
				Options(
					huh.NewOption("Tell the user", settings.PolicyNotify),
					huh.NewOption("Only log it", settings.PolicyLog),
				).
				Value(&ms.ErrorPolicy),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if err != nil {
		return err
	}

	if err := settings.SetCommandPrefix(ctx, store, prefix); err != nil {
		return err
	}
	if err := settings.SaveModule(ctx, store, ms); err != nil {
		return err
	}
	fmt.Println("Settings saved.")
	return nil
}
