// ABOUTME: Subcommands of the coven-clan CLI
// ABOUTME: serve runs the bot, init writes a starter config, check validates it, version prints it

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/coven-clan/internal/bot"
	"github.com/2389/coven-clan/internal/config"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the platform and run the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ResolvePath(*configPath)
			if err != nil {
				return err
			}

			cyan := color.New(color.FgCyan)
			cyan.Fprint(cmd.OutOrStdout(), banner)
			gray := color.New(color.FgHiBlack)
			gray.Fprintf(cmd.OutOrStdout(), "    version: %s\n\n", version)

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging)

			printSummary(cmd, path, cfg)

			logger.Info("starting coven-clan",
				"config", path,
				"platform", cfg.Platform,
				"database", cfg.Database.Driver,
				"modules", strings.Join(cfg.Modules.Enabled, ","),
			)

			b, err := bot.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating bot: %w", err)
			}
			return b.Run(cmd.Context())
		},
	}
}

func printSummary(cmd *cobra.Command, path string, cfg *config.Config) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	line := func(label, value string) {
		green.Fprint(out, "    ▶ ")
		fmt.Fprintf(out, "%-10s %s\n", label+":", value)
	}

	line("Config", path)
	line("Platform", cfg.Platform)
	switch cfg.Database.Driver {
	case config.DriverMongo:
		line("Database", "mongo ("+cfg.Database.Name+")")
	default:
		line("Database", "sqlite ("+cfg.Database.Path+")")
	}
	line("Modules", strings.Join(cfg.Modules.Enabled, ", "))
	fmt.Fprintln(out)
}

func newInitCmd(configPath *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ResolvePath(*configPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "    Config already exists at %s\n", path)
				return errors.New("refusing to overwrite existing config (use --force)")
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.DefaultFile), 0600); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "    ✓ Config written to %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "    Next: fill in credentials, then run: coven-clan check")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ResolvePath(*configPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("invalid config %s: %w", path, err)
			}

			catalog := bot.DefaultCatalog()
			for _, name := range cfg.Modules.Enabled {
				if _, ok := catalog[name]; !ok {
					return fmt.Errorf("unknown module %q (available: %s)", name, strings.Join(catalog.Names(), ", "))
				}
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "    ✓ %s is valid\n", path)
			printSummary(cmd, path, cfg)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coven-clan %s\n", version)
		},
	}
}
