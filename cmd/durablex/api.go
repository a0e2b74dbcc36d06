package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/durablex/durablex/internal/api"
	"github.com/durablex/durablex/internal/dispatcher"
	"github.com/durablex/durablex/internal/events"
	"github.com/durablex/durablex/internal/execution"
	"github.com/durablex/durablex/internal/logger"
	"github.com/durablex/durablex/internal/store"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the optional HTTP introspection server",
	Long: `api serves the client-facing HTTP surface over the engine
specification's programmatic operations (queue_task, start_workflow,
get_execution, send_signal, ...) plus operator endpoints for worker
liveness and stuck-execution recovery (SPEC_FULL §11). Workers never
call this server among themselves; it is purely for clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(ctx context.Context) error {
	st, err := store.Open(ctx, store.PoolConfig{
		DatabaseURL: cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		DialTimeout: cfg.Database.DialTimeout,
		AutoMigrate: cfg.Database.AutoMigrate,
	})
	if err != nil {
		return fmt.Errorf("api: open store: %w", err)
	}
	defer st.Close()

	store.ChannelPrefix = cfg.Notify.ChannelPrefix

	policy := &execution.RetryPolicy{
		BackoffBase: cfg.Defaults.RetryBackoffBase,
		BackoffMax:  cfg.Defaults.RetryBackoffMax,
		JitterFrac:  0.1,
	}
	disp := dispatcher.New(st, policy)
	publisher := events.NewMemoryPublisher()

	srv := api.NewServer(cfg, disp, publisher)

	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	srv.Start(hubCtx)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info().Str("addr", cfg.API.Addr).Msg("api: listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("api: serve: %w", err)
	case <-quit:
		logger.Get().Info().Msg("api: shutting down")
	}

	hubCancel()
	srv.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}

	os.Exit(130)
	return nil
}
