package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/config"
)

// secretKeys maps the names accepted on the command line to keyring keys.
var secretKeys = map[string]string{
	"discord":  config.DiscordTokenKey,
	"telegram": config.TelegramTokenKey,
}

// newSecretsCmd creates the `clawhelp secrets` command group.
func newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store channel tokens in the OS keyring",
		Long: `Tokens in the keyring take precedence over environment variables
(CLAWHELP_DISCORD_TOKEN, CLAWHELP_TELEGRAM_TOKEN) and the config file.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <discord|telegram> [token]",
			Short: "Save a token; prompts when the token is omitted",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := secretKey(args[0])
				if err != nil {
					return err
				}
				var token string
				if len(args) == 2 {
					token = args[1]
				} else {
					if token, err = promptToken(args[0]); err != nil {
						return err
					}
				}
				if strings.TrimSpace(token) == "" {
					return fmt.Errorf("token must not be empty")
				}
				if err := config.StoreSecret(key, strings.TrimSpace(token)); err != nil {
					return fmt.Errorf("saving to keyring: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s token saved to the keyring.\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <discord|telegram>",
			Short: "Remove a token from the keyring",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := secretKey(args[0])
				if err != nil {
					return err
				}
				if err := config.DeleteSecret(key); err != nil {
					return fmt.Errorf("deleting from keyring: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s token removed.\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func secretKey(name string) (string, error) {
	key, ok := secretKeys[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown secret %q: want discord or telegram", name)
	}
	return key, nil
}

func promptToken(name string) (string, error) {
	if !isTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no token given and stdin is not a terminal")
	}
	var token string
	err := huh.NewInput().
		Title(fmt.Sprintf("%s bot token", name)).
		EchoMode(huh.EchoModePassword).
		Value(&token).
		Run()
	return token, err
}
