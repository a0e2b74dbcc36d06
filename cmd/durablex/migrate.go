package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations (executions, workflow_contexts, signals, worker_heartbeats)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.RunMigrations(cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Get().Info().Msg("migrate: schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
