package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/dsl"
	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/registry"
	"github.com/durablex/durablex/internal/store"
	"github.com/durablex/durablex/internal/worker"
)

var (
	workerQueues  []string
	workerID      string
	workerImports []string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Worker process against one or more queues",
	Long: `worker runs the claim/execute/complete loop of engine specification
§4.4: it claims batches of pending executions from the given queues,
bounds concurrency, executes tasks directly and workflows through the DSL
replay engine, and heartbeats its own liveness.

At least one --queue is required.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(workerQueues) == 0 {
			return fmt.Errorf("worker: at least one --queue is required")
		}
		for _, mod := range workerImports {
			logger.Get().Warn().Str("module", mod).Msg(
				"worker: --import is a contract placeholder in this core; " +
					"function registration is an external bindings concern (engine specification §1)")
		}

		return runWorker(cmd.Context(), workerQueues, workerID)
	},
}

func init() {
	workerCmd.Flags().StringArrayVar(&workerQueues, "queue", nil, "queue to claim work from (repeatable)")
	workerCmd.Flags().StringVar(&workerID, "worker-id", "", "worker identifier (generated if omitted)")
	workerCmd.Flags().StringArrayVar(&workerImports, "import", nil, "external module registering tasks/workflows (repeatable)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(ctx context.Context, queues []string, id string) error {
	st, err := store.Open(ctx, store.PoolConfig{
		DatabaseURL: cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		DialTimeout: cfg.Database.DialTimeout,
		AutoMigrate: cfg.Database.AutoMigrate,
	})
	if err != nil {
		return fmt.Errorf("worker: open store: %w", err)
	}
	defer st.Close()

	store.ChannelPrefix = cfg.Notify.ChannelPrefix

	policy := &execution.RetryPolicy{
		BackoffBase: cfg.Defaults.RetryBackoffBase,
		BackoffMax:  cfg.Defaults.RetryBackoffMax,
		JitterFrac:  0.1,
	}
	disp := dispatcher.New(st, policy)

	reg := registry.New()
	if err := loadDSLSources(reg, cfg.DSL.Sources); err != nil {
		return fmt.Errorf("worker: load DSL sources: %w", err)
	}

	workerCfg := cfg.Worker
	workerCfg.Queues = queues
	if id != "" {
		workerCfg.ID = id
	}

	pool := worker.NewPool(workerCfg, cfg.Defaults, disp, st, reg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := pool.Start(runCtx); err != nil {
		return fmt.Errorf("worker: start: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info().Msg("worker: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), workerCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Get().Error().Err(err).Msg("worker: shutdown error")
	}
	_ = disp.DeregisterWorker(context.Background(), pool.ID())

	os.Exit(130)
	return nil
}

// loadDSLSources parses every .flow file under sources (files or
// directories) and registers the resulting Program under its own name
// (engine specification's Open Question resolution: the DSL/explicit
// instruction-stream form is the sole canonical workflow representation).
func loadDSLSources(reg *registry.Registry, sources []string) error {
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("stat %s: %w", src, err)
		}

		if !info.IsDir() {
			if err := loadDSLFile(reg, src); err != nil {
				return err
			}
			continue
		}

		entries, err := os.ReadDir(src)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", src, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".flow" {
				continue
			}
			if err := loadDSLFile(reg, filepath.Join(src, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadDSLFile(reg *registry.Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	prog, err := dsl.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	reg.RegisterWorkflow(prog)
	logger.Get().Info().Str("workflow", prog.Name).Str("source", path).Msg("worker: registered workflow")
	return nil
}
