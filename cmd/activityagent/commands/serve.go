package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/activityagent/api"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the HTTP service.

Endpoints:
  POST /        generate a chat reply; optional body {"input": "..."}
  GET  /health  liveness heartbeat`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := globalConfig
	if servePort != "" {
		cfg.Port = servePort
	}

	logger := newLogger(cfg, os.Stdout)

	if err := cfg.CheckCredential(); err != nil {
		logger.Warn("config.credential_missing", "error", err, "provider", cfg.Model.Provider)
	}

	generator, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}

	handler := api.NewHandler(generator, func(o *api.HandlerOptions) {
		o.MaxInputLength = cfg.MaxInputLength
		o.RequestTimeout = cfg.RequestTimeout
		o.Logger = logger
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.start", "addr", srv.Addr, "provider", cfg.Model.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	stop()

	logger.Info("server.shutdown", "timeout", cfg.ShutdownTimeout.String())

	shutdownCtx := context.Background()
	if cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
		return err
	}

	return <-errCh
}
