package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the `clawhelp` root command.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "clawhelp",
		Short: "Chat command bot with numbered, grouped help",
		Long: `clawhelp connects to chat platforms (Discord, Telegram, a WebSocket
web chat or the local terminal) and answers commands. "/help" lists every
command with a number; "/help <number>" shows the details of one command.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default: discovered)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newRenderCmd(),
		newSettingsCmd(),
		newSchedulesCmd(),
		newSecretsCmd(),
	)
	return root
}
