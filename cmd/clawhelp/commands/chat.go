package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels/console"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

// newChatCmd creates the `clawhelp chat` command.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Try the bot in the terminal",
		Long: `Start an interactive session where each line is handled like a chat
message from a private conversation.

Keyboard shortcuts:
  ↑/↓        Navigate history
  Ctrl+R     Search history
  Tab        Autocomplete commands
  Ctrl+D     Exit`,
		RunE: runChat,
	}
	cmd.Flags().String("user", "", "sender id for typed messages")
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ccfg := rt.cfg.Channels.Console
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		ccfg.User = user
	}
	prefix := settings.CommandPrefix(ctx, rt.store)
	for _, name := range rt.app.Registry.Commands() {
		ccfg.Completions = append(ccfg.Completions, prefix+name)
	}

	con := console.New(ccfg, rt.logger)
	if err := rt.app.Channels.Register(con); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-con.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	fmt.Println(chatBanner(rt.cfg.Name, prefix))
	if err := rt.app.Run(runCtx); err != nil {
		return err
	}
	fmt.Println("  Bye!")
	return nil
}
