package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/durablex/durablex/internal/config"
	"github.com/durablex/durablex/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "durablex",
	Short: "Durable execution engine: migrations, worker, and introspection CLI",
	Long: `durablex runs the durable execution engine described in the engine
specification: a single relational store backing at-least-once task and
workflow execution with crash-safe workflow replay.

Subcommands:
  migrate   apply schema migrations
  worker    run a Worker process against one or more queues
  api       run the optional HTTP introspection server
  status    show one execution's current state
  list      list executions
  cancel    cancel a pending or suspended execution
  bench     stub: the benchmarking harness is an external tool`,
}

// cfg is the process-wide configuration, loaded once in
// PersistentPreRunE before any subcommand runs.
var cfg *config.Config

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
		return nil
	}
}
