package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tiergate/internal/platform/config"
	"tiergate/internal/platform/database"
	"tiergate/migrations"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "tiergate",
		Short:        "Partner tier routing gateway",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.FilePath(), "path of the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the gateway",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Load and validate configuration, then exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d services, lookup source %s, cache size %d\n",
					len(cfg.Services), cfg.Lookup.Source, cfg.CacheSize)
				return nil
			},
		},
		newMigrateCmd(&configPath),
	)
	return root
}

func newMigrateCmd(configPath *string) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the tier_configs schema to the postgres lookup database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Lookup.Source != config.SourcePostgres {
				return fmt.Errorf("migrate needs lookup.source %q, got %q", config.SourcePostgres, cfg.Lookup.Source)
			}
			pool, err := database.New(cmd.Context(), database.DefaultConfig(cfg.Lookup.URL))
			if err != nil {
				return err
			}
			defer pool.Close() //nolint:errcheck // process exits next

			apply := migrations.Up
			if down {
				apply = migrations.Down
			}
			files, err := apply(cmd.Context(), pool.DB())
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert instead of apply")
	return cmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
