// ABOUTME: Entry point for the coven-clan bot
// ABOUTME: Cobra root command with serve, init, check, and version subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                          _
  ___ _____   _____ _ __         ___| | __ _ _ __
 / __/ _ \ \ / / _ \ '_ \ _____ / __| |/ _' | '_ \
| (_| (_) \ V /  __/ | | |_____| (__| | (_| | | | |
 \___\___/ \_/ \___|_| |_|      \___|_|\__,_|_| |_|
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "coven-clan",
		Short: "Clan roster and weekly activity bot",
		Long: `coven-clan tracks a clan roster with mission completion and counts
weekly messages from clan members. It runs on Discord or Matrix.

Config is read from --config, then $COVEN_CLAN_CONFIG, then
$XDG_CONFIG_HOME/coven/clan.yaml, then ~/.config/coven/clan.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (.yaml or .toml)")

	root.AddCommand(
		newServeCmd(&configPath),
		newInitCmd(&configPath),
		newCheckCmd(&configPath),
		newVersionCmd(),
	)
	return root
}
