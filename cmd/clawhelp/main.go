// Command clawhelp runs a chat command bot with a numbered help command.
package main

import (
	"os"

	"github.com/jholhewres/clawhelp/cmd/clawhelp/commands"
)

var version = "dev"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
